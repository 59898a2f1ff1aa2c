// Package config provides configuration loading for the chainbeats CLI.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CHAINBEATS"

// Default values
const (
	DefaultNetwork        = "localhost"
	DefaultOmnichainPath  = "omnichain.json"
	DefaultArtifactPath   = "artifacts/contracts/ChainBeats.sol/ChainBeats.json"
	DefaultDeploymentsDir = "deployments"
	DefaultTimeout        = 10 * time.Minute
	DefaultMintCount      = 3
	DefaultLocalRPC       = "http://127.0.0.1:8545"
	DefaultLocalChainID   = 31337
)

var (
	// ErrUnknownNetwork is returned when the active network has no settings.
	ErrUnknownNetwork = errors.New("config: unknown network")
	// ErrInvalidNetwork is returned when network settings fail validation.
	ErrInvalidNetwork = errors.New("config: invalid network settings")
	// ErrInvalidMintCount is returned for a negative mint_count.
	ErrInvalidMintCount = errors.New("config: mint_count must not be negative")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds all configuration for the CLI.
type Config struct {
	Network        string             `mapstructure:"network"`
	Omnichain      string             `mapstructure:"omnichain"`
	Artifact       string             `mapstructure:"artifact"`
	DeploymentsDir string             `mapstructure:"deployments_dir"`
	MetricsFile    string             `mapstructure:"metrics_file"`
	Timeout        time.Duration      `mapstructure:"timeout"`
	MintCount      int                `mapstructure:"mint_count"`
	Networks       map[string]Network `mapstructure:"networks"`
}

// Network holds the connection and account settings for one chain.
type Network struct {
	RPCURL  string `mapstructure:"rpc_url" validate:"required,url"`
	ChainID uint64 `mapstructure:"chain_id"`
	// Accounts are hex-encoded private keys. The first one signs.
	Accounts    []string `mapstructure:"accounts" validate:"dive,hexadecimal"`
	Keystore    string   `mapstructure:"keystore"`
	PasswordEnv string   `mapstructure:"password_env"`
	// DevAccounts enables the well-known local development keys when no
	// other accounts are configured.
	DevAccounts bool `mapstructure:"dev_accounts"`
}

// Validate checks the network settings.
func (n Network) Validate() error {
	if err := validate.Struct(n); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidNetwork, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	if n.Keystore != "" && len(n.Accounts) > 0 {
		return fmt.Errorf("%w: accounts and keystore are mutually exclusive", ErrInvalidNetwork)
	}
	return nil
}

// Load reads configuration from an optional file and environment variables.
// An empty path searches ./chainbeats.yaml and ./config/chainbeats.yaml.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("chainbeats")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and env vars only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.MintCount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMintCount, cfg.MintCount)
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("network", DefaultNetwork)
	v.SetDefault("omnichain", DefaultOmnichainPath)
	v.SetDefault("artifact", DefaultArtifactPath)
	v.SetDefault("deployments_dir", DefaultDeploymentsDir)
	v.SetDefault("metrics_file", "")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("mint_count", DefaultMintCount)

	// Local development node (hardhat node / anvil)
	v.SetDefault("networks.localhost.rpc_url", DefaultLocalRPC)
	v.SetDefault("networks.localhost.chain_id", DefaultLocalChainID)
	v.SetDefault("networks.localhost.dev_accounts", true)
}

// ActiveNetworkName returns the selected network name, lower-cased to match
// the keys viper produces for the networks map.
func (c *Config) ActiveNetworkName() string {
	if c.Network == "" {
		return DefaultNetwork
	}
	return strings.ToLower(c.Network)
}

// ActiveNetwork returns the selected network name and its settings.
func (c *Config) ActiveNetwork() (string, Network, error) {
	name := c.ActiveNetworkName()
	net, err := c.NetworkByName(name)
	if err != nil {
		return "", Network{}, err
	}
	return name, net, nil
}

// NetworkByName returns validated settings for a network.
func (c *Config) NetworkByName(name string) (Network, error) {
	// viper lower-cases map keys
	net, ok := c.Networks[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s (configured: %s)", ErrUnknownNetwork, name, strings.Join(c.NetworkNames(), ", "))
	}
	if err := net.Validate(); err != nil {
		return Network{}, fmt.Errorf("network %s: %w", name, err)
	}
	return net, nil
}

// NetworkNames returns the configured network names, sorted.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
