package testutil

import (
	"bytes"
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
)

// CallRecorder is a chain client that keeps the calldata of every
// eth_call made through it.
type CallRecorder struct {
	simulated.Client

	mu    sync.Mutex
	calls [][]byte
}

// NewCallRecorder wraps client.
func NewCallRecorder(client simulated.Client) *CallRecorder {
	return &CallRecorder{Client: client}
}

// CallContract records msg.Data and forwards the call.
func (r *CallRecorder) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, common.CopyBytes(msg.Data))
	r.mu.Unlock()
	return r.Client.CallContract(ctx, msg, blockNumber)
}

// Inputs returns the decoded arguments of each recorded call to method, in
// call order.
func (r *CallRecorder) Inputs(t testing.TB, method string) [][]interface{} {
	t.Helper()

	parsed, err := chainbeats.ParseInterfaceABI()
	require.NoError(t, err)
	m, ok := parsed.Methods[method]
	require.True(t, ok, "unknown method %s", method)

	r.mu.Lock()
	defer r.mu.Unlock()

	var out [][]interface{}
	for _, data := range r.calls {
		if len(data) < 4 || !bytes.Equal(data[:4], m.ID) {
			continue
		}
		args, err := m.Inputs.Unpack(data[4:])
		require.NoError(t, err)
		out = append(out, args)
	}
	return out
}
