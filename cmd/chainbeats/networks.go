package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bidon15/chainbeats/internal/config"
	"github.com/Bidon15/chainbeats/internal/omnichain"
	"github.com/Bidon15/chainbeats/internal/preflight"
	"github.com/Bidon15/chainbeats/internal/signer"
)

var networksCheck bool

func resetNetworksFlags() {
	networksCheck = false
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List configured networks",
	Long: `List the networks from the config file together with whether the
omnichain file has settings for each. The active network is marked with *.

With --check, the pre-flight checks run against every network's RPC URL:
reachability, chain ID and whether the first account can pay for the
configured mints.`,
	Args: cobra.NoArgs,
	RunE: runNetworks,
}

func init() {
	networksCmd.Flags().BoolVar(&networksCheck, "check", false, "run pre-flight checks against each network")
}

type networkRow struct {
	Name      string                  `json:"name"`
	Active    bool                    `json:"active"`
	RPCURL    string                  `json:"rpcUrl"`
	ChainID   uint64                  `json:"chainId,omitempty"`
	Omnichain bool                    `json:"omnichain"`
	Error     string                  `json:"error,omitempty"`
	Ready     *bool                   `json:"ready,omitempty"`
	Checks    []preflight.CheckResult `json:"checks,omitempty"`
}

func runNetworks(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// A missing omnichain file just means no network has settings yet.
	file, err := omnichain.Load(cfg.Omnichain)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	ctx, cancel := commandContext(cmd, cfg.Timeout)
	defer cancel()
	checker := preflight.NewChecker()

	active := cfg.ActiveNetworkName()
	rows := make([]networkRow, 0, len(cfg.Networks))
	for _, name := range cfg.NetworkNames() {
		net := cfg.Networks[name]
		row := networkRow{
			Name:    name,
			Active:  name == active,
			RPCURL:  net.RPCURL,
			ChainID: net.ChainID,
		}
		args, err := file.Arguments(name)
		if err == nil {
			row.Omnichain = true
		} else if !errors.Is(err, omnichain.ErrNetworkNotFound) {
			row.Error = err.Error()
		}
		if err := net.Validate(); err != nil {
			row.Error = err.Error()
		}

		if networksCheck && row.Error == "" {
			req, err := preflightRequest(net, args, cfg.MintCount)
			if err != nil {
				row.Error = err.Error()
			} else if resp, err := checker.RunChecks(ctx, req); err != nil {
				row.Error = err.Error()
			} else {
				ready := resp.OK
				row.Ready = &ready
				row.Checks = resp.Checks
			}
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, rows)
	}

	w := newTable(out)
	header := "\tNAME\tCHAIN ID\tRPC URL\tOMNICHAIN"
	if networksCheck {
		header += "\tPREFLIGHT"
	}
	_, _ = fmt.Fprintln(w, header)
	for _, r := range rows {
		marker := ""
		if r.Active {
			marker = "*"
		}
		chainID := "-"
		if r.ChainID != 0 {
			chainID = fmt.Sprintf("%d", r.ChainID)
		}
		status := "no"
		switch {
		case r.Error != "":
			status = "error: " + r.Error
		case r.Omnichain:
			status = "yes"
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", marker, r.Name, chainID, r.RPCURL, status)
		if networksCheck {
			line += "\t" + preflightSummary(r)
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return w.Flush()
}

// preflightRequest builds the checks for one network from its settings alone.
// The deployer is the first configured account; mint costs are included when
// the omnichain file has a price for the network.
func preflightRequest(net config.Network, args omnichain.Arguments, mintCount int) (*preflight.Request, error) {
	if net.ChainID == 0 {
		return nil, fmt.Errorf("chain_id is not set")
	}
	s, err := signer.First(net, new(big.Int).SetUint64(net.ChainID))
	if err != nil {
		return nil, err
	}
	return &preflight.Request{
		RPCURL:          net.RPCURL,
		ChainID:         net.ChainID,
		DeployerAddress: s.Address().Hex(),
		MintPrice:       args.MintPrice,
		MintCount:       mintCount,
	}, nil
}

func preflightSummary(r networkRow) string {
	if r.Ready == nil {
		return "-"
	}
	if *r.Ready {
		return "ok"
	}
	msgs := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		if !c.Passed {
			msgs = append(msgs, c.Message)
		}
	}
	return "failed: " + strings.Join(msgs, "; ")
}
