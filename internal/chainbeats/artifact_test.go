package chainbeats_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
	"github.com/Bidon15/chainbeats/internal/testutil"
)

func TestParseArtifact_Layouts(t *testing.T) {
	hardhat := `{"contractName":"ChainBeats","abi":` + chainbeats.InterfaceABI + `,"bytecode":"0x6001600055"}`
	foundry := `{"abi":` + chainbeats.InterfaceABI + `,"bytecode":{"object":"0x6001600055","linkReferences":{}}}`
	bare := `{"abi":` + chainbeats.InterfaceABI + `,"bytecode":"6001600055"}`

	for name, data := range map[string]string{"hardhat": hardhat, "foundry": foundry, "no prefix": bare} {
		t.Run(name, func(t *testing.T) {
			a, err := chainbeats.ParseArtifact([]byte(data))
			require.NoError(t, err)

			code, err := a.CreationCode()
			require.NoError(t, err)
			assert.Equal(t, []byte{0x60, 0x01, 0x60, 0x00, 0x55}, code)
		})
	}
}

func TestParseArtifact_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		errMsg  string
	}{
		{
			name:    "empty bytecode",
			data:    `{"abi":` + chainbeats.InterfaceABI + `,"bytecode":"0x"}`,
			wantErr: chainbeats.ErrEmptyBytecode,
		},
		{
			name:    "missing bytecode",
			data:    `{"abi":` + chainbeats.InterfaceABI + `}`,
			wantErr: chainbeats.ErrEmptyBytecode,
		},
		{
			name:   "unlinked library",
			data:   `{"abi":` + chainbeats.InterfaceABI + `,"bytecode":"0x73__$abc$__"}`,
			errMsg: "unlinked",
		},
		{
			name:    "no abi",
			data:    `{"bytecode":"0x6001"}`,
			wantErr: chainbeats.ErrIncompatibleABI,
		},
		{
			name:    "missing getMetadata",
			data:    `{"abi":[{"type":"constructor","inputs":[{"name":"a","type":"address"},{"name":"b","type":"uint256"},{"name":"c","type":"uint256"},{"name":"d","type":"uint256"}]},{"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"to","type":"address"}]},{"type":"function","name":"mintPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}],"bytecode":"0x6001"}`,
			wantErr: chainbeats.ErrIncompatibleABI,
			errMsg:  "getMetadata",
		},
		{
			name:    "wrong constructor",
			data:    `{"abi":[{"type":"constructor","inputs":[]}],"bytecode":"0x6001"}`,
			wantErr: chainbeats.ErrIncompatibleABI,
			errMsg:  "constructor",
		},
		{
			name:    "mint not payable",
			data:    `{"abi":[{"type":"constructor","inputs":[{"name":"a","type":"address"},{"name":"b","type":"uint256"},{"name":"c","type":"uint256"},{"name":"d","type":"uint256"}]},{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"}]},{"type":"function","name":"mintPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},{"type":"function","name":"getMetadata","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]}],"bytecode":"0x6001"}`,
			wantErr: chainbeats.ErrIncompatibleABI,
			errMsg:  "not payable",
		},
		{
			name:   "not json",
			data:   `nope`,
			errMsg: "parse artifact",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := chainbeats.ParseArtifact([]byte(tc.data))
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.errMsg != "" {
				assert.Contains(t, err.Error(), tc.errMsg)
			}
		})
	}
}

func TestLoadArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ChainBeats.json")
	require.NoError(t, os.WriteFile(path, testutil.StubArtifactJSON(t), 0o644))

	a, err := chainbeats.LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, chainbeats.ContractName, a.ContractName)

	var abiMethods []map[string]interface{}
	require.NoError(t, json.Unmarshal(a.ABI, &abiMethods))
	assert.Len(t, abiMethods, 4)

	_, err = chainbeats.LoadArtifact(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read artifact")
}
