package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ctxwin/ctxwin/pkg/ctx"
)

var flagPins []string

var planCmd = &cobra.Command{
	Use:   "plan [files...]",
	Short: "Dry-run the selection plan for a set of files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringArrayVar(&flagPins, "pin", nil, "pin a file (repeatable)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	manager, err := ctx.NewManager(nil,
		ctx.WithLogger(newLogger()),
		ctx.WithStore(store),
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.SetStrategy(flagStrategy); err != nil {
		return err
	}
	for _, pin := range flagPins {
		manager.PinFile(pin)
	}

	candidates, err := fileCandidates(args)
	if err != nil {
		return err
	}

	result, err := manager.BuildContext(cmd.Context(), ctx.BuildRequest{
		SessionID:      uuid.NewString(),
		Model:          flagModel,
		MaxTokens:      flagMaxTokens,
		ReservedTokens: flagReserved,
		Candidates:     candidates,
	})
	if result == nil {
		return err
	}
	if err != nil {
		// Capacity problems are reported but the plan is still printed.
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	printPlan(cmd, result)
	return nil
}

func fileCandidates(paths []string) ([]ctx.CandidateItem, error) {
	candidates := make([]ctx.CandidateItem, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		candidates = append(candidates, ctx.CandidateItem{
			ID:           path,
			Content:      string(content),
			Kind:         ctx.KindFile,
			LastModified: info.ModTime(),
		})
	}
	return candidates, nil
}

func printPlan(cmd *cobra.Command, result *ctx.SelectionResult) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INCLUDED\tCATEGORY\tRELEVANCE\tTOKENS\tTRUNCATED")
	for _, item := range result.Included {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%v\n",
			item.ID, item.Category(), item.Relevance, item.TokenCost, item.Truncated)
	}
	w.Flush()

	if len(result.Omitted) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		w = tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "OMITTED\tREASON")
		for _, omitted := range result.Omitted {
			fmt.Fprintf(w, "%s\t%s\n", omitted.Item.ID, omitted.Reason)
		}
		w.Flush()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\ntotal used: %d of %d available (%d reserved of %d total)\n",
		result.TotalUsed, result.Budget.Available, result.Budget.Reserved, result.Budget.Total)
}
