package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/spf13/cobra"

	"github.com/Bidon15/chainbeats/internal/chainbeats"
)

var metadataAddress string

func resetMetadataFlags() {
	metadataAddress = ""
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <tokenId>",
	Short: "Print the metadata of a minted token",
	Long: `Call getMetadata(tokenId) on a deployed ChainBeats and print the result
decoded as text. The contract is the one recorded for the active network
unless --address is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetadata,
}

func init() {
	metadataCmd.Flags().StringVar(&metadataAddress, "address", "", "contract address (default: recorded deployment)")
}

func runMetadata(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	tokenID, ok := new(big.Int).SetString(args[0], 10)
	if !ok || tokenID.Sign() < 0 {
		return fmt.Errorf("invalid token id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name, net, err := cfg.ActiveNetwork()
	if err != nil {
		return err
	}
	address, _, err := resolveAddress(metadataAddress, cfg.DeploymentsDir, name)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cfg.Timeout)
	defer cancel()

	backend, _, err := connect(ctx, logger, name, net)
	if err != nil {
		return err
	}
	defer backend.Close()

	contract, err := chainbeats.NewChainBeats(address, backend)
	if err != nil {
		return err
	}
	text, err := contract.MetadataText(&bind.CallOpts{Context: ctx}, tokenID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, map[string]interface{}{
			"address":  address,
			"tokenId":  tokenID.String(),
			"metadata": text,
		})
	}
	_, _ = fmt.Fprintln(out, text)
	return nil
}
