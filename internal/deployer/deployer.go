// Package deployer deploys ChainBeats and performs its initial mints.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
	"github.com/Bidon15/chainbeats/internal/metrics"
	"github.com/Bidon15/chainbeats/internal/omnichain"
	"github.com/Bidon15/chainbeats/internal/signer"
)

// ErrInvalidRequest is returned for requests that cannot start a run.
var ErrInvalidRequest = errors.New("deployer: invalid request")

// Request describes one deployment run.
type Request struct {
	Omnichain *omnichain.File
	Network   string
	// MintCount is the number of initial mints. Zero skips minting.
	MintCount int
}

// Result is what a run produced. On failure it holds whatever was
// completed before the error.
type Result struct {
	Network     string              `json:"network"`
	Address     common.Address      `json:"address"`
	DeployTx    common.Hash         `json:"deployTransaction"`
	BlockNumber uint64              `json:"blockNumber"`
	Deployer    common.Address      `json:"deployer"`
	Arguments   omnichain.Arguments `json:"arguments"`
	MintPrice   *big.Int            `json:"mintPrice,omitempty"`
	MintTxs     []common.Hash       `json:"mintTransactions"`
}

// Deployed reports whether the contract creation was confirmed.
func (r *Result) Deployed() bool {
	return r != nil && r.Address != (common.Address{})
}

// Deployer runs deployments with one signer against one chain.
type Deployer struct {
	backend  chainbeats.Backend
	artifact *chainbeats.Artifact
	signer   *signer.Signer
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployer) {
		d.logger = logger
	}
}

// WithMetrics records transactions into m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Deployer) {
		d.metrics = m
	}
}

// New creates a deployer.
func New(backend chainbeats.Backend, artifact *chainbeats.Artifact, s *signer.Signer, opts ...Option) *Deployer {
	d := &Deployer{
		backend:  backend,
		artifact: artifact,
		signer:   s,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run deploys the contract with the network's omnichain settings, waits for
// it, reads back the mint price and mints sequentially to the signer.
//
// The network's settings are resolved before anything is sent to the chain.
// Mints already mined when a later step fails are not undone.
func (d *Deployer) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Network == "" {
		return nil, fmt.Errorf("%w: network is required", ErrInvalidRequest)
	}
	if req.MintCount < 0 {
		return nil, fmt.Errorf("%w: mint count %d is negative", ErrInvalidRequest, req.MintCount)
	}
	args, err := req.Omnichain.Arguments(req.Network)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Network:   req.Network,
		Deployer:  d.signer.Address(),
		Arguments: args,
		MintTxs:   []common.Hash{},
	}

	d.logger.Info("deploying ChainBeats",
		slog.String("network", req.Network),
		slog.String("deployer", d.signer.Address().Hex()),
		slog.String("endpoint", args.Endpoint.Hex()),
		slog.String("start_token_id", args.StartTokenID.String()),
		slog.String("end_token_id", args.EndTokenID.String()),
		slog.String("mint_price", args.MintPrice.String()),
	)

	contract, receipt, err := d.deploy(ctx, req.Network, args)
	if receipt != nil {
		result.DeployTx = receipt.TxHash
	}
	if err != nil {
		return result, err
	}
	result.Address = contract.Address()
	result.BlockNumber = receipt.BlockNumber.Uint64()
	d.metrics.Deployed(req.Network, time.Now())

	d.logger.Info("ChainBeats deployed",
		slog.String("address", result.Address.Hex()),
		slog.String("tx_hash", result.DeployTx.Hex()),
		slog.Uint64("block_number", result.BlockNumber),
	)

	price, err := contract.MintPrice(&bind.CallOpts{Context: ctx})
	if err != nil {
		return result, fmt.Errorf("read mint price: %w", err)
	}
	result.MintPrice = price
	if price.Cmp(args.MintPrice) != 0 {
		d.logger.Warn("on-chain mint price differs from configuration",
			slog.String("configured", args.MintPrice.String()),
			slog.String("on_chain", price.String()),
		)
	}

	if req.MintCount == 0 {
		d.logger.Info("no initial mints requested")
		return result, nil
	}

	hashes, err := d.MintSequential(ctx, req.Network, contract, d.signer.Address(), price, req.MintCount)
	result.MintTxs = append(result.MintTxs, hashes...)
	if err != nil {
		return result, err
	}

	return result, nil
}

// deploy sends the creation transaction and waits until code is present.
// The receipt is returned when available, even on failure.
func (d *Deployer) deploy(ctx context.Context, network string, args omnichain.Arguments) (*chainbeats.ChainBeats, *types.Receipt, error) {
	start := time.Now()
	contract, tx, err := chainbeats.Deploy(
		d.signer.Transactor(ctx, nil),
		d.backend,
		d.artifact,
		args.Endpoint,
		args.StartTokenID,
		args.EndTokenID,
		args.MintPrice,
	)
	if err != nil {
		d.metrics.Transaction(network, metrics.KindDeploy, metrics.StatusFailed, 0, 0)
		return nil, nil, err
	}

	d.logger.Info("deployment submitted, waiting for confirmation",
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.String("address", contract.Address().Hex()),
	)

	receipt, err := chainbeats.WaitDeployed(ctx, d.backend, tx)
	d.observe(network, metrics.KindDeploy, receipt, err, time.Since(start))
	if err != nil {
		if receipt == nil {
			receipt = &types.Receipt{TxHash: tx.Hash()}
		}
		return nil, receipt, err
	}
	return contract, receipt, nil
}

// MintSequential sends count mints of contract to recipient, each paying
// price. Every mint is mined and checked before the next is sent. The hashes
// of confirmed mints are returned, also on error.
func (d *Deployer) MintSequential(
	ctx context.Context,
	network string,
	contract *chainbeats.ChainBeats,
	to common.Address,
	price *big.Int,
	count int,
) ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, count)
	for i := 0; i < count; i++ {
		start := time.Now()
		tx, err := contract.Mint(d.signer.Transactor(ctx, price), to)
		if err != nil {
			d.metrics.Transaction(network, metrics.KindMint, metrics.StatusFailed, 0, 0)
			return hashes, fmt.Errorf("mint %d/%d: %w", i+1, count, err)
		}

		receipt, err := chainbeats.WaitMined(ctx, d.backend, tx)
		d.observe(network, metrics.KindMint, receipt, err, time.Since(start))
		if err != nil {
			return hashes, fmt.Errorf("mint %d/%d: %w", i+1, count, err)
		}
		hashes = append(hashes, tx.Hash())

		d.logger.Info("minted",
			slog.Int("mint", i+1),
			slog.Int("of", count),
			slog.String("to", to.Hex()),
			slog.String("value", price.String()),
			slog.String("tx_hash", tx.Hash().Hex()),
			slog.Uint64("gas_used", receipt.GasUsed),
		)
	}
	return hashes, nil
}

func (d *Deployer) observe(network, kind string, receipt *types.Receipt, err error, took time.Duration) {
	switch {
	case receipt == nil:
		d.metrics.Transaction(network, kind, metrics.StatusFailed, 0, took)
	case errors.Is(err, chainbeats.ErrTransactionReverted):
		d.metrics.Transaction(network, kind, metrics.StatusReverted, receipt.GasUsed, took)
	default:
		d.metrics.Transaction(network, kind, metrics.StatusSuccess, receipt.GasUsed, took)
	}
}
