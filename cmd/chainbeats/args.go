package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Bidon15/chainbeats/internal/omnichain"
)

var (
	argsFormat string
	argsOut    string
)

func resetArgsFlags() {
	argsFormat = "json"
	argsOut = ""
}

var argsCmd = &cobra.Command{
	Use:   "args",
	Short: "Print the constructor arguments for the active network",
	Long: `Print [endpoint, startTokenId, endTokenId, mintPrice] for the active
network, in constructor order, as read from the omnichain file.

The output can be passed to a block explorer verifier as the constructor
arguments file.`,
	Args: cobra.NoArgs,
	RunE: runArgs,
}

func init() {
	argsCmd.Flags().StringVar(&argsFormat, "format", "json", "output format: json or yaml")
	argsCmd.Flags().StringVarP(&argsOut, "out", "o", "", "write to this file instead of stdout")
}

func runArgs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file, err := omnichain.Load(cfg.Omnichain)
	if err != nil {
		return err
	}
	name := cfg.ActiveNetworkName()
	rec, err := file.Lookup(name)
	if err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("network %s: %w", name, err)
	}
	values := rec.Values()

	if argsFormat != "json" && argsFormat != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", argsFormat)
	}
	if argsOut == "" {
		return writeArgs(cmd.OutOrStdout(), argsFormat, values)
	}
	f, err := os.Create(argsOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", argsOut, err)
	}
	return writeArgsFile(f, argsOut, argsFormat, values)
}

// writeArgsFile writes values to f and closes it. A failed close is an error
// since the data may not have reached the disk.
func writeArgsFile(f io.WriteCloser, path, format string, values []interface{}) error {
	if err := writeArgs(f, format, values); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func writeArgs(w io.Writer, format string, values []interface{}) error {
	switch format {
	case "json":
		return printJSON(w, values)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(values); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
