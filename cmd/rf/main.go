// Command rf trains and evaluates random forests from CSV data.
//
// The subcommand layout follows pbanos-botanic/cmd/botanic's cobra root
// command (a persistent --verbose flag plus one subcommand per pipeline
// stage), generalized from that tool's single grow/test pair to the three
// entry-point families spec.md §6 names: train, predict and quantile.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootConfig struct {
	verbose bool
}

func main() {
	if err := cliParser().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	root := &cobra.Command{
		Use:   "rf",
		Short: "rf trains and evaluates random forests",
		Long:  "rf grows random forests from tabular CSV data for classification or regression, persists them, and predicts against new rows.",
	}
	cfg := &rootConfig{}
	root.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "print progress to stderr")
	root.AddCommand(trainCmd(cfg), predictCmd(cfg), quantileCmd(cfg))
	return root
}

func (c *rootConfig) Logf(format string, args ...interface{}) {
	if c.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
