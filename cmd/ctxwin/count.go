package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ctxwin/ctxwin/pkg/ctx"
)

var flagExact bool

var countCmd = &cobra.Command{
	Use:   "count [files...]",
	Short: "Estimate token counts for files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCount,
}

func init() {
	countCmd.Flags().BoolVar(&flagExact, "exact", false, "use the model's tokenizer instead of the heuristic")
}

func runCount(cmd *cobra.Command, args []string) error {
	var counter ctx.TokenCounter = ctx.HeuristicCounter{}
	if flagExact {
		exact, err := ctx.NewTiktokenCounter(flagModel)
		if err != nil {
			return fmt.Errorf("exact counter unavailable: %w", err)
		}
		counter = exact
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tBYTES\tTOKENS")
	total := 0
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		tokens := counter.Count(string(content))
		total += tokens
		fmt.Fprintf(w, "%s\t%d\t%d\n", path, len(content), tokens)
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\ntotal: %d tokens\n", total)
	return nil
}
