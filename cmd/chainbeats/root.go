package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
	"github.com/Bidon15/chainbeats/internal/config"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Global flag variables
var (
	cfgFile        string
	networkName    string
	omnichainPath  string
	artifactPath   string
	deploymentsDir string
	metricsFile    string
	timeout        time.Duration
	jsonOut        bool
	verbose        bool
)

// ErrChainIDMismatch is returned when the RPC endpoint serves a different
// chain than the network settings expect.
var ErrChainIDMismatch = errors.New("chain ID mismatch")

// Backend is a connected chain.
type Backend interface {
	chainbeats.Backend
	Close()
}

// dialBackend connects to an RPC endpoint. Replaced in tests.
var dialBackend = func(ctx context.Context, rpcURL string) (Backend, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

// rootCmd is the base command for the CLI
var rootCmd *cobra.Command

// versionCmd prints version information
var versionCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "chainbeats",
		Short: "ChainBeats - deploy and exercise the ChainBeats omnichain NFT",
		Long: `chainbeats deploys the ChainBeats contract with per-network settings
from the omnichain file, performs its initial mints and inspects deployed
instances.

Configuration (in order of priority):
  1. Command-line flags (--network, --omnichain, --artifact, ...)
  2. Environment variables (CHAINBEATS_NETWORK, CHAINBEATS_OMNICHAIN, ...)
  3. Config file (./chainbeats.yaml or --config)

Get started:
  $ chainbeats networks               # Show configured networks
  $ chainbeats args --network fuji    # Constructor arguments for fuji
  $ chainbeats deploy --network fuji  # Deploy and mint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print the version, commit hash, and build date of chainbeats",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "chainbeats %s\n", Version)
			if verbose {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", Commit)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  built:   %s\n", BuildDate)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./chainbeats.yaml)")
	flags.StringVarP(&networkName, "network", "n", "", "active network (or CHAINBEATS_NETWORK, default localhost)")
	flags.StringVar(&omnichainPath, "omnichain", "", "omnichain settings file (or CHAINBEATS_OMNICHAIN)")
	flags.StringVar(&artifactPath, "artifact", "", "compiled ChainBeats artifact (or CHAINBEATS_ARTIFACT)")
	flags.StringVar(&deploymentsDir, "deployments", "", "deployment records directory (or CHAINBEATS_DEPLOYMENTS_DIR)")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here (or CHAINBEATS_METRICS_FILE)")
	flags.DurationVar(&timeout, "timeout", 0, "overall deadline for chain operations (default 10m)")
	flags.BoolVar(&jsonOut, "json", false, "output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(argsCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(mintCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(networksCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteWithArgs runs the root command with the provided arguments (for testing)
func ExecuteWithArgs(args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// SetOutput sets the output writer for the root command (for testing)
func SetOutput(w io.Writer) {
	rootCmd.SetOut(w)
	rootCmd.SetErr(w)
}

// ResetFlags resets all global flags to their defaults (for testing)
func ResetFlags() {
	cfgFile = ""
	networkName = ""
	omnichainPath = ""
	artifactPath = ""
	deploymentsDir = ""
	metricsFile = ""
	timeout = 0
	jsonOut = false
	verbose = false
	resetArgsFlags()
	resetDeployFlags()
	resetMintFlags()
	resetMetadataFlags()
	resetNetworksFlags()

	// pflag keeps parsed values and Changed marks between executions
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		if f := c.Flags().Lookup("help"); f != nil {
			_ = f.Value.Set("false")
		}
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		c.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
}

// loadConfig reads the config file and environment, then applies flags.
// Flags take precedence over environment variables and the file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if networkName != "" {
		cfg.Network = networkName
	}
	if omnichainPath != "" {
		cfg.Omnichain = omnichainPath
	}
	if artifactPath != "" {
		cfg.Artifact = artifactPath
	}
	if deploymentsDir != "" {
		cfg.DeploymentsDir = deploymentsDir
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg, nil
}

// newLogger returns a text logger on the command's error stream.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// commandContext bounds a command by the configured timeout and cancels it
// on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

// connect dials the network and checks it serves the expected chain. The
// chain ID the endpoint reports is returned.
func connect(ctx context.Context, logger *slog.Logger, name string, net config.Network) (Backend, *big.Int, error) {
	backend, err := dialBackend(ctx, net.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", name, err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("get chain ID from %s: %w", name, err)
	}
	if net.ChainID != 0 && chainID.Uint64() != net.ChainID {
		backend.Close()
		return nil, nil, fmt.Errorf("%w: %s expects %d, endpoint reports %s", ErrChainIDMismatch, name, net.ChainID, chainID)
	}

	logger.Debug("connected",
		slog.String("network", name),
		slog.String("rpc_url", net.RPCURL),
		slog.String("chain_id", chainID.String()),
	)
	return backend, chainID, nil
}

// Output helpers

// printJSON outputs data as formatted JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable creates a new tabwriter for formatted output.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
