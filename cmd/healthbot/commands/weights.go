package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
)

// weightsCmd represents the weights command
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Inspect score weights",
	Long: `Shows the category weights used by the health score.

Subcommands:
  show    - base weights, and effective weights for an industry
  export  - current configuration as a weight file
  check   - validate a weight file

Example:
  go run ./cmd/healthbot weights show --industry banking
  go run ./cmd/healthbot weights export > config/weights.yaml
  go run ./cmd/healthbot weights check config/weights.yaml`,
}

var (
	weightsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show base and effective weights",
		RunE:  runWeightsShow,
	}

	weightsExportCmd = &cobra.Command{
		Use:   "export",
		Short: "Print the weight file",
		RunE:  runWeightsExport,
	}

	weightsCheckCmd = &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a weight file",
		Args:  cobra.ExactArgs(1),
		RunE:  runWeightsCheck,
	}

	weightsIndustry string
)

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.AddCommand(weightsShowCmd)
	weightsCmd.AddCommand(weightsExportCmd)
	weightsCmd.AddCommand(weightsCheckCmd)

	weightsShowCmd.Flags().StringVar(&weightsIndustry, "industry", "", "industry to apply")
}

func runWeightsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), oneShot(false))
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"version":   a.weights.Version(),
			"hash":      a.weights.Hash(),
			"base":      a.weights.Weights(),
			"effective": a.weights.EffectiveWeights(weightsIndustry),
		})
	}
	renderWeights(out, a.weights, weightsIndustry)
	return nil
}

func runWeightsExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), oneShot(false))
	if err != nil {
		return err
	}
	defer a.close()

	data, err := scoreweights.Marshal(a.weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runWeightsCheck(cmd *cobra.Command, args []string) error {
	cfg, warnings, err := scoreweights.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range warnings {
		fmt.Fprintf(out, "⚠️  %s: %s\n", w.Code, w.Message)
	}
	fmt.Fprintf(out, "✅ %s is valid (hash %s)\n", args[0], shortHash(cfg.Hash()))
	return nil
}
