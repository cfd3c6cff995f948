package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/s0_data/quality"
)

// snapshotsCmd represents the snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List available snapshots and their data quality",
	Long: `Lists every symbol the snapshot source serves with its price
and data-quality grade. Use it to spot stale or incomplete inputs.

Example:
  go run ./cmd/healthbot snapshots
  go run ./cmd/healthbot snapshots --snapshots data/snapshots.json`,
	Args: cobra.NoArgs,
	RunE: runSnapshots,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
}

type snapshotRow struct {
	Symbol   string                      `json:"symbol"`
	Category contracts.MarketCategory    `json:"market_category"`
	Price    float64                     `json:"price"`
	Quality  *contracts.ValidationResult `json:"quality"`
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, oneShot(false))
	if err != nil {
		return err
	}
	defer a.close()

	symbols, err := a.provider.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}

	qc := quality.DefaultConfig()
	qc.MaxAge = a.cfg.Analysis.DataMaxAge
	validator := quality.NewValidator(a.log, quality.WithConfig(qc))

	rows := make([]snapshotRow, 0, len(symbols))
	for _, symbol := range symbols {
		s, err := a.provider.Snapshot(ctx, symbol)
		if errors.Is(err, contracts.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch %s: %w", symbol, err)
		}
		rows = append(rows, snapshotRow{
			Symbol:   s.Symbol,
			Category: s.MarketCategory,
			Price:    s.Price,
			Quality:  validator.Validate(s, quality.DefaultRequiredFields()),
		})
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, rows)
	}

	tw := newTable(out, "Snapshots")
	tw.AppendHeader(table.Row{"Symbol", "Type", "Price", "Quality", "Level", "Issues"})
	for _, r := range rows {
		q := r.Quality
		tw.AppendRow(table.Row{
			r.Symbol, r.Category, price(r.Price),
			fmt.Sprintf("%.0f", q.Quality.OverallScore), q.Quality.Level,
			len(q.Errors) + len(q.Warnings),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "total", len(rows)})
	tw.SetColumnConfigs(rightAligned(3, 4, 6))
	tw.Render()
	return nil
}
