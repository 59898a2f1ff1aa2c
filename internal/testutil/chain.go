// Package testutil provides an in-process chain and a stand-in ChainBeats
// artifact for tests.
package testutil

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
	"github.com/Bidon15/chainbeats/internal/signer"
)

// StubMetadata is what every call against the stub contract returns,
// ABI-encoded as a single bytes value.
const StubMetadata = `{"name":"ChainBeats #0","beats":[]}`

// StubMintPrice is what mintPrice() reads on the stub: the first word of the
// encoded reply, which is the 0x20 offset of the bytes value.
var StubMintPrice = big.NewInt(32)

// stubCreationCode deploys a contract whose runtime code ignores calldata
// and returns abi.encode(bytes(StubMetadata)). Value is accepted.
const stubCreationCode = "0x" +
	"608b80600b6000396000f3" + // copy 0x8b bytes of runtime from offset 0x0b and return them
	"608080600b6000396000f3" + // runtime: copy 0x80 bytes of reply data and return them
	"0000000000000000000000000000000000000000000000000000000000000020" +
	"0000000000000000000000000000000000000000000000000000000000000023" +
	"7b226e616d65223a22436861696e4265617473202330222c226265617473223a" +
	"5b5d7d0000000000000000000000000000000000000000000000000000000000"

// ChainID of the simulated backend.
var ChainID = big.NewInt(1337)

// StubArtifactJSON returns a Hardhat-layout artifact for the stub contract.
func StubArtifactJSON(t testing.TB) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"contractName": chainbeats.ContractName,
		"sourceName":   "contracts/ChainBeats.sol",
		"abi":          json.RawMessage(chainbeats.InterfaceABI),
		"bytecode":     stubCreationCode,
	})
	require.NoError(t, err)
	return data
}

// StubArtifact returns the parsed stub artifact.
func StubArtifact(t testing.TB) *chainbeats.Artifact {
	t.Helper()
	a, err := chainbeats.ParseArtifact(StubArtifactJSON(t))
	require.NoError(t, err)
	return a
}

// Chain is a funded simulated chain that mines on its own.
type Chain struct {
	Backend *simulated.Backend
	Client  simulated.Client
	Key     *ecdsa.PrivateKey
	Signer  *signer.Signer
}

// NewChain starts a simulated chain with one funded account. Blocks are
// committed every 50ms so that receipt polling makes progress; the chain is
// closed when the test ends.
func NewChain(t testing.TB) *Chain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	funds := new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))
	backend := simulated.NewBackend(types.GenesisAlloc{
		addr: {Balance: funds},
	})

	s, err := signer.FromKey(key, ChainID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = backend.Close()
	})

	return &Chain{
		Backend: backend,
		Client:  backend.Client(),
		Key:     key,
		Signer:  s,
	}
}

// Address is the funded account.
func (c *Chain) Address() common.Address {
	return c.Signer.Address()
}

// Context returns a context that expires well before the test timeout.
func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
