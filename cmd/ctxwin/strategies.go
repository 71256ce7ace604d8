package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ctxwin/ctxwin/pkg/ctx"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	RunE:  runStrategies,
}

func runStrategies(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRESERVED\tPRIORITY PATTERNS")
	for _, name := range store.Names() {
		strategy, _ := store.Get(name)
		patterns := strings.Join(strategy.PriorityPatterns, ", ")
		if patterns == "" {
			patterns = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", strategy.Name, strategy.ReservedTokens, patterns)
	}
	return w.Flush()
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Preview the budget partition for a model and strategy",
	RunE:  runBudget,
}

func runBudget(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	strategy, ok := store.Get(flagStrategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q", flagStrategy)
	}

	total := flagMaxTokens
	if total <= 0 {
		total = ctx.ContextWindowFor(flagModel)
	}
	reserved := flagReserved
	if reserved <= 0 {
		reserved = strategy.ReservedTokens
	}
	if reserved <= 0 {
		reserved = ctx.DefaultReservedTokens(total)
	}

	budget, err := ctx.Partition(total, reserved, strategy)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tALLOCATION")
	for _, category := range ctx.Categories() {
		fmt.Fprintf(w, "%s\t%d\n", category, budget.Allocations[category])
	}
	fmt.Fprintf(w, "reserved\t%d\n", budget.Reserved)
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\navailable: %d of %d total\n", budget.Available, budget.Total)
	return nil
}
