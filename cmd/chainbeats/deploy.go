package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
	"github.com/Bidon15/chainbeats/internal/deployer"
	"github.com/Bidon15/chainbeats/internal/metrics"
	"github.com/Bidon15/chainbeats/internal/omnichain"
	"github.com/Bidon15/chainbeats/internal/preflight"
	"github.com/Bidon15/chainbeats/internal/record"
	"github.com/Bidon15/chainbeats/internal/signer"
)

var (
	deployMintCount     int
	deploySkipPreflight bool
	deployNoRecord      bool
)

func resetDeployFlags() {
	deployMintCount = 0
	deploySkipPreflight = false
	deployNoRecord = false
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy ChainBeats and perform the initial mints",
	Long: `Deploy ChainBeats to the active network with the constructor arguments
from the omnichain file, wait for confirmation, read back mintPrice and mint
to the deploying account (mint_count times, 3 by default), one transaction
at a time.

The deployment is recorded under the deployments directory so that the mint
and metadata commands can find it.`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().IntVar(&deployMintCount, "mints", 0, "number of initial mints (default from config, 3); 0 skips minting")
	deployCmd.Flags().BoolVar(&deploySkipPreflight, "skip-preflight", false, "skip the balance and chain checks")
	deployCmd.Flags().BoolVar(&deployNoRecord, "no-record", false, "do not write a deployment record")
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name, net, err := cfg.ActiveNetwork()
	if err != nil {
		return err
	}

	// Everything that can be checked locally is checked before dialing.
	file, err := omnichain.Load(cfg.Omnichain)
	if err != nil {
		return err
	}
	args, err := file.Arguments(name)
	if err != nil {
		return err
	}
	artifact, err := chainbeats.LoadArtifact(cfg.Artifact)
	if err != nil {
		return err
	}

	count := cfg.MintCount
	if cmd.Flags().Changed("mints") {
		count = deployMintCount
	}
	if count < 0 {
		return fmt.Errorf("%w: --mints must not be negative", deployer.ErrInvalidRequest)
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

	if !deploySkipPreflight {
		resp, err := preflight.NewChecker().RunChecksWithClient(ctx, backend, &preflight.Request{
			ChainID:         chainID.Uint64(),
			DeployerAddress: s.Address().Hex(),
			MintPrice:       args.MintPrice,
			MintCount:       count,
		})
		if err != nil {
			return err
		}
		for _, c := range resp.Checks {
			logger.Debug("preflight", slog.String("check", string(c.Name)), slog.Bool("passed", c.Passed), slog.String("message", c.Message))
		}
		if !resp.OK {
			msgs := make([]string, 0, len(resp.Checks))
			for _, c := range resp.Failed() {
				msgs = append(msgs, c.Message)
			}
			return fmt.Errorf("preflight failed: %s", strings.Join(msgs, "; "))
		}
	}

	rec := metrics.New()
	d := deployer.New(backend, artifact, s,
		deployer.WithLogger(logger),
		deployer.WithMetrics(rec),
	)

	result, runErr := d.Run(ctx, deployer.Request{
		Omnichain: file,
		Network:   name,
		MintCount: count,
	})

	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("failed to write metrics", slog.String("error", err.Error()))
	}

	if result.Deployed() && !deployNoRecord {
		store := record.NewStore(cfg.DeploymentsDir)
		dep := &record.Deployment{
			Network:      name,
			ChainID:      chainID.Uint64(),
			ContractName: chainbeats.ContractName,
			Address:      result.Address,
			TxHash:       result.DeployTx,
			BlockNumber:  result.BlockNumber,
			Deployer:     result.Deployer,
			Args:         argStrings(result),
			MintTxs:      result.MintTxs,
			DeployedAt:   time.Now().UTC(),
		}
		if result.MintPrice != nil {
			dep.MintPrice = result.MintPrice.String()
		}
		if err := store.Save(dep); err != nil {
			logger.Warn("failed to write deployment record", slog.String("error", err.Error()))
		} else {
			logger.Info("deployment recorded",
				slog.String("path", store.Path(name, chainbeats.ContractName)),
				slog.String("run_id", dep.RunID),
			)
		}
	}

	if runErr != nil {
		if result.Deployed() {
			logger.Error("deployment incomplete",
				slog.String("address", result.Address.Hex()),
				slog.Int("mints_completed", len(result.MintTxs)),
			)
		}
		return runErr
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, result)
	}
	_, _ = fmt.Fprintf(out, "ChainBeats deployed to: %s\n", result.Address.Hex())
	if len(result.MintTxs) > 0 {
		_, _ = fmt.Fprintf(out, "ChainBeats minted to: %s\n", result.Deployer.Hex())
	}
	return nil
}

func argStrings(r *deployer.Result) []string {
	a := r.Arguments
	if a.StartTokenID == nil || a.EndTokenID == nil || a.MintPrice == nil {
		return nil
	}
	return []string{a.Endpoint.Hex(), a.StartTokenID.String(), a.EndTokenID.String(), a.MintPrice.String()}
}

// resolveAddress returns addr if set, otherwise the recorded deployment
// address for network.
func resolveAddress(addr, deployments, network string) (common.Address, *record.Store, error) {
	store := record.NewStore(deployments)
	if addr != "" {
		if !common.IsHexAddress(addr) {
			return common.Address{}, nil, fmt.Errorf("invalid address %q", addr)
		}
		return common.HexToAddress(addr), nil, nil
	}
	dep, err := store.Load(network, chainbeats.ContractName)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w (deploy first or pass --address)", err)
	}
	return dep.Address, store, nil
}
