package omnichain

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJSON = `{
  "rinkeby": {
    "endpoint": "0x79a63d6d8BBD5c6dfc774dA79bCcD948EAcb53FA",
    "startTokenId": 0,
    "endTokenId": 999,
    "mintPrice": "10000000000000000"
  },
  "localhost": {
    "endpoint": "0x0000000000000000000000000000000000000000",
    "startTokenId": 0,
    "endTokenId": 999,
    "mintPrice": "0"
  }
}`

const testYAML = `
fuji:
  endpoint: "0x93f54D755A063cE7bB9e6Ac47Eccc8e33411d706"
  startTokenId: 1000
  endTokenId: 1999
  mintPrice: "250000000000000000"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	f, err := Load(writeFile(t, "omnichain.json", testJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost", "rinkeby"}, f.Networks())

	rec, err := f.Lookup("rinkeby")
	require.NoError(t, err)
	assert.Equal(t, "0x79a63d6d8BBD5c6dfc774dA79bCcD948EAcb53FA", rec.Endpoint)
	assert.Equal(t, uint64(999), rec.EndTokenID)
	assert.Equal(t, "10000000000000000", rec.MintPrice)
}

func TestLoad_YAML(t *testing.T) {
	f, err := Load(writeFile(t, "omnichain.yaml", testYAML))
	require.NoError(t, err)

	rec, err := f.Lookup("fuji")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), rec.StartTokenID)
	assert.Equal(t, uint64(1999), rec.EndTokenID)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read omnichain file")

	_, err = Load(writeFile(t, "broken.json", `{"rinkeby": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestArguments_Order(t *testing.T) {
	f, err := Load(writeFile(t, "omnichain.json", testJSON))
	require.NoError(t, err)

	for _, network := range f.Networks() {
		t.Run(network, func(t *testing.T) {
			rec, err := f.Lookup(network)
			require.NoError(t, err)

			args, err := f.Arguments(network)
			require.NoError(t, err)

			slice := args.Slice()
			require.Len(t, slice, 4)
			assert.Equal(t, common.HexToAddress(rec.Endpoint), slice[0])
			assert.Equal(t, new(big.Int).SetUint64(rec.StartTokenID), slice[1])
			assert.Equal(t, new(big.Int).SetUint64(rec.EndTokenID), slice[2])
			price, _ := new(big.Int).SetString(rec.MintPrice, 10)
			assert.Equal(t, price, slice[3])

			values := rec.Values()
			assert.Equal(t, []interface{}{rec.Endpoint, rec.StartTokenID, rec.EndTokenID, rec.MintPrice}, values)
		})
	}
}

func TestLookup_MissingNetwork(t *testing.T) {
	f, err := Load(writeFile(t, "omnichain.json", testJSON))
	require.NoError(t, err)

	_, err = f.Lookup("mainnet")
	require.ErrorIs(t, err, ErrNetworkNotFound)
	assert.Contains(t, err.Error(), "mainnet")

	_, err = f.Arguments("mainnet")
	require.ErrorIs(t, err, ErrNetworkNotFound)

	var nilFile *File
	_, err = nilFile.Lookup("localhost")
	require.ErrorIs(t, err, ErrNetworkNotFound)
}

func TestLookup_IgnoresCase(t *testing.T) {
	f := &File{Records: map[string]Record{}}
	f.Records["fuji"] = Record{Endpoint: "0x93f54D755A063cE7bB9e6Ac47Eccc8e33411d706", EndTokenID: 100, MintPrice: "1"}
	f.Records["Rinkeby"] = Record{Endpoint: "0x79a63d6d8BBD5c6dfc774dA79bCcD948EAcb53FA", EndTokenID: 50, MintPrice: "2"}

	tests := []struct {
		network string
		wantEnd uint64
	}{
		{"fuji", 100},
		{"Fuji", 100},
		{"FUJI", 100},
		{"rinkeby", 50},
		{"Rinkeby", 50},
	}

	for _, tc := range tests {
		t.Run(tc.network, func(t *testing.T) {
			rec, err := f.Lookup(tc.network)
			require.NoError(t, err)
			assert.Equal(t, tc.wantEnd, rec.EndTokenID)
		})
	}
}

func TestRecord_Validate(t *testing.T) {
	valid := Record{
		Endpoint:     "0x0000000000000000000000000000000000000000",
		StartTokenID: 0,
		EndTokenID:   100,
		MintPrice:    "0",
	}

	tests := []struct {
		name    string
		mutate  func(r *Record)
		wantErr string
	}{
		{name: "valid", mutate: func(r *Record) {}},
		{name: "missing endpoint", mutate: func(r *Record) { r.Endpoint = "" }, wantErr: "Endpoint"},
		{name: "endpoint not an address", mutate: func(r *Record) { r.Endpoint = "0x1234" }, wantErr: "eth_addr"},
		{name: "end before start", mutate: func(r *Record) { r.StartTokenID = 200 }, wantErr: "gtefield"},
		{name: "missing mint price", mutate: func(r *Record) { r.MintPrice = "" }, wantErr: "MintPrice"},
		{name: "decimal mint price", mutate: func(r *Record) { r.MintPrice = "0.01" }, wantErr: "number"},
		{name: "negative mint price", mutate: func(r *Record) { r.MintPrice = "-1" }, wantErr: "number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := valid
			tc.mutate(&rec)
			err := rec.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRecord)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBuildArguments(t *testing.T) {
	path := writeFile(t, "omnichain.json", testJSON)

	args, err := BuildArguments(path, "rinkeby")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", args.MintPrice.String())

	_, err = BuildArguments(path, "goerli")
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}
