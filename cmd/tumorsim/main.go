package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tumorsim",
		Short: "Tumor growth and treatment lattice simulation",
		Long: `tumorsim runs a stochastic cellular automaton of tumor growth under periodic drug
treatment on a bounded 2D lattice.

Runs are logged as compressed JSONL tick logs (plus an optional SQLite index) and
can be replayed to verify determinism.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("log_level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newReplayCmd(),
	)
	return rootCmd
}
