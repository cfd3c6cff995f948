package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [SYMBOL]",
	Short: "List stored evaluations",
	Long: `Lists evaluations saved by evaluate --save, the API or the worker.
Needs DATABASE_URL; without it only the current process is searched.

Example:
  go run ./cmd/healthbot history 2330 --limit 5
  go run ./cmd/healthbot history --since 168h`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLimit int
	historySince time.Duration
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only evaluations newer than this (e.g. 72h)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, oneShot(true))
	if err != nil {
		return err
	}
	defer a.close()

	filter := contracts.EvaluationFilter{Limit: historyLimit}
	if len(args) == 1 {
		filter.Symbol = args[0]
	}
	if historySince > 0 {
		filter.Since = time.Now().Add(-historySince)
	}

	list, err := a.repo.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list evaluations: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No evaluations stored")
		return nil
	}
	renderEvaluations(out, list)
	return nil
}
