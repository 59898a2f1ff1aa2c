package main

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
	"github.com/Bidon15/chainbeats/internal/deployer"
	"github.com/Bidon15/chainbeats/internal/metrics"
	"github.com/Bidon15/chainbeats/internal/signer"
)

var (
	mintAddress string
	mintTo      string
	mintCount   int
)

func resetMintFlags() {
	mintAddress = ""
	mintTo = ""
	mintCount = 1
}

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint tokens from a deployed ChainBeats",
	Long: `Mint tokens one at a time, paying the contract's current mintPrice for
each. The contract is the one recorded for the active network unless
--address is given; tokens go to the signing account unless --to is given.`,
	Args: cobra.NoArgs,
	RunE: runMint,
}

func init() {
	mintCmd.Flags().StringVar(&mintAddress, "address", "", "contract address (default: recorded deployment)")
	mintCmd.Flags().StringVar(&mintTo, "to", "", "recipient (default: signer)")
	mintCmd.Flags().IntVar(&mintCount, "count", 1, "number of mints")
}

func runMint(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	if mintCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	if mintTo != "" && !common.IsHexAddress(mintTo) {
		return fmt.Errorf("invalid recipient %q", mintTo)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name, net, err := cfg.ActiveNetwork()
	if err != nil {
		return err
	}
	address, store, err := resolveAddress(mintAddress, cfg.DeploymentsDir, name)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cfg.Timeout)
	defer cancel()

	backend, chainID, err := connect(ctx, logger, name, net)
	if err != nil {
		return err
	}
	defer backend.Close()

	s, err := signer.First(net, chainID)
	if err != nil {
		return fmt.Errorf("network %s: %w", name, err)
	}
	to := s.Address()
	if mintTo != "" {
		to = common.HexToAddress(mintTo)
	}

	contract, err := chainbeats.NewChainBeats(address, backend)
	if err != nil {
		return err
	}
	price, err := contract.MintPrice(&bind.CallOpts{Context: ctx})
	if err != nil {
		return err
	}

	rec := metrics.New()
	d := deployer.New(backend, nil, s, deployer.WithLogger(logger), deployer.WithMetrics(rec))
	hashes, mintErr := d.MintSequential(ctx, name, contract, to, price, mintCount)

	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("failed to write metrics", slog.String("error", err.Error()))
	}
	if store != nil && len(hashes) > 0 {
		if err := store.AppendMints(name, chainbeats.ContractName, hashes...); err != nil {
			logger.Warn("failed to update deployment record", slog.String("error", err.Error()))
		}
	}
	if mintErr != nil {
		return mintErr
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, map[string]interface{}{
			"address":          address,
			"to":               to,
			"mintPrice":        price.String(),
			"mintTransactions": hashes,
		})
	}
	_, _ = fmt.Fprintf(out, "ChainBeats minted to: %s\n", to.Hex())
	for _, h := range hashes {
		_, _ = fmt.Fprintf(out, "  %s\n", h.Hex())
	}
	return nil
}
