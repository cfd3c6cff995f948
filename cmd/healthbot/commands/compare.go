package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare SYMBOL [SYMBOL...]",
	Short: "Rank several symbols by health score",
	Long: `Builds health reports for every symbol and ranks them.
Symbols without a snapshot are reported as skipped.

Example:
  go run ./cmd/healthbot compare 2330 2454 2303 --industry semis
  go run ./cmd/healthbot compare --all`,
	RunE: runCompare,
}

var (
	compareIndustry string
	compareAll      bool
	compareSave     bool
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareIndustry, "industry", "", "peer group for weights and benchmark")
	compareCmd.Flags().BoolVar(&compareAll, "all", false, "compare every symbol the snapshot source knows")
	compareCmd.Flags().BoolVar(&compareSave, "save", false, "store the comparison")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 0 && !compareAll {
		return fmt.Errorf("give at least one symbol or --all")
	}

	a, err := newApp(ctx, oneShot(compareSave))
	if err != nil {
		return err
	}
	defer a.close()

	symbols := args
	if compareAll {
		symbols, err = a.provider.Symbols(ctx)
		if err != nil {
			return fmt.Errorf("list symbols: %w", err)
		}
	}

	snapshots := make(map[string]*contracts.Snapshot, len(symbols))
	for _, symbol := range symbols {
		s, err := a.provider.Snapshot(ctx, symbol)
		if errors.Is(err, contracts.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch %s: %w", symbol, err)
		}
		cp := *s
		cp.Symbol = symbol
		snapshots[symbol] = &cp
	}

	batch, err := a.pipeline.EvaluateMany(ctx, symbols, snapshots, compareIndustry)
	if err != nil {
		return err
	}

	if compareSave {
		if err := a.repo.SaveBatch(ctx, batch); err != nil {
			return fmt.Errorf("save batch: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, batch)
	}
	renderComparison(out, batch)
	return nil
}
