package main

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/ctxwin/ctxwin/pkg/ctx"
	"github.com/ctxwin/ctxwin/pkg/logging"
)

var (
	flagModel     string
	flagMaxTokens int
	flagReserved  int
	flagStrategy  string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "ctxwin",
	Short: "Inspect and dry-run context window assembly",
	Long: `ctxwin exercises the context-window management engine against real
files: estimate token counts, preview budget partitions, and dry-run the
selection plan a model invocation would receive.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model name used for context window lookup")
	rootCmd.PersistentFlags().IntVar(&flagMaxTokens, "max-tokens", 0, "override the model's context window")
	rootCmd.PersistentFlags().IntVar(&flagReserved, "reserved", 0, "tokens reserved for system prompt and response")
	rootCmd.PersistentFlags().StringVar(&flagStrategy, "strategy", "balanced", "strategy preset to apply")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(budgetCmd)
}

func newLogger() logging.Logger {
	if flagVerbose {
		return logging.NewVerboseLogger()
	}
	return logging.NewDefaultLogger()
}

// loadStore returns the strategy store, merging ~/.ctxwin/strategies.yaml
// when present.
func loadStore() (*ctx.Store, error) {
	store := ctx.NewStore()

	home, err := homedir.Dir()
	if err != nil {
		return store, nil
	}
	path := filepath.Join(home, ".ctxwin", "strategies.yaml")
	if _, err := os.Stat(path); err != nil {
		return store, nil
	}
	if err := store.LoadFile(path); err != nil {
		return nil, err
	}
	return store, nil
}
