package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
network: sepolia
omnichain: ./omnichain.json
timeout: 2m
mint_count: 5
networks:
  sepolia:
    rpc_url: https://eth-sepolia.example.com
    chain_id: 11155111
    accounts:
      - "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
  fuji:
    rpc_url: https://api.avax-test.network/ext/bc/C/rpc
    chain_id: 43113
    keystore: ./keystore
    password_env: FUJI_KEYSTORE_PASSWORD
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chainbeats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no config file is picked up
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultNetwork, cfg.Network)
	assert.Equal(t, DefaultOmnichainPath, cfg.Omnichain)
	assert.Equal(t, DefaultArtifactPath, cfg.Artifact)
	assert.Equal(t, DefaultDeploymentsDir, cfg.DeploymentsDir)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMintCount, cfg.MintCount)

	name, net, err := cfg.ActiveNetwork()
	require.NoError(t, err)
	assert.Equal(t, "localhost", name)
	assert.Equal(t, DefaultLocalRPC, net.RPCURL)
	assert.Equal(t, uint64(DefaultLocalChainID), net.ChainID)
	assert.True(t, net.DevAccounts)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 5, cfg.MintCount)
	assert.Equal(t, []string{"fuji", "localhost", "sepolia"}, cfg.NetworkNames())

	name, net, err := cfg.ActiveNetwork()
	require.NoError(t, err)
	assert.Equal(t, "sepolia", name)
	assert.Equal(t, uint64(11155111), net.ChainID)
	require.Len(t, net.Accounts, 1)

	fuji, err := cfg.NetworkByName("fuji")
	require.NoError(t, err)
	assert.Equal(t, "./keystore", fuji.Keystore)
	assert.Equal(t, "FUJI_KEYSTORE_PASSWORD", fuji.PasswordEnv)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CHAINBEATS_NETWORK", "fuji")
	t.Setenv("CHAINBEATS_MINT_COUNT", "1")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "fuji", cfg.Network)
	assert.Equal(t, 1, cfg.MintCount)
}

func TestLoad_MintCount(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		want    int
		wantErr bool
	}{
		{name: "zero is kept", env: "0", want: 0},
		{name: "explicit count", env: "7", want: 7},
		{name: "negative", env: "-1", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CHAINBEATS_MINT_COUNT", tc.env)

			cfg, err := Load(writeConfig(t, testConfig))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMintCount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.MintCount)
		})
	}

	t.Run("zero from file", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "mint_count: 0\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.MintCount)
	})
}

func TestActiveNetwork_IgnoresCase(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	cfg.Network = "Fuji"
	assert.Equal(t, "fuji", cfg.ActiveNetworkName())

	name, net, err := cfg.ActiveNetwork()
	require.NoError(t, err)
	assert.Equal(t, "fuji", name)
	assert.Equal(t, uint64(43113), net.ChainID)

	cfg.Network = ""
	assert.Equal(t, DefaultNetwork, cfg.ActiveNetworkName())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNetworkByName_Unknown(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	_, err = cfg.NetworkByName("mainnet")
	require.ErrorIs(t, err, ErrUnknownNetwork)
	assert.Contains(t, err.Error(), "fuji, localhost, sepolia")
}

func TestNetwork_Validate(t *testing.T) {
	tests := []struct {
		name    string
		net     Network
		wantErr string
	}{
		{
			name: "valid",
			net:  Network{RPCURL: "http://127.0.0.1:8545"},
		},
		{
			name:    "missing rpc url",
			net:     Network{},
			wantErr: "RPCURL",
		},
		{
			name:    "malformed rpc url",
			net:     Network{RPCURL: "not a url"},
			wantErr: "url",
		},
		{
			name:    "non-hex account",
			net:     Network{RPCURL: "http://127.0.0.1:8545", Accounts: []string{"zzz"}},
			wantErr: "hexadecimal",
		},
		{
			name: "accounts and keystore",
			net: Network{
				RPCURL:   "http://127.0.0.1:8545",
				Accounts: []string{"0x01"},
				Keystore: "./keystore",
			},
			wantErr: "mutually exclusive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.net.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidNetwork)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
