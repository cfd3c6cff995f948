package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryu111/stock-health-bot-sub001/internal/brain"
	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/valuation"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate SYMBOL",
	Short: "Evaluate one symbol",
	Long: `Runs the full pipeline for one symbol:
quality check → valuation → health report → recommendation → entry prices.

Example:
  go run ./cmd/healthbot evaluate 2330
  go run ./cmd/healthbot evaluate 2330 --market bearish --industry semis
  go run ./cmd/healthbot evaluate 0050 --methods FUND_YIELD,DDM --save`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

var (
	evalMarket     string
	evalIndustry   string
	evalMethods    []string
	evalAllocation float64
	evalTarget     float64
	evalSave       bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalMarket, "market", "neutral", "market condition (bullish|neutral|bearish)")
	evaluateCmd.Flags().StringVar(&evalIndustry, "industry", "", "industry override for weights and multipliers")
	evaluateCmd.Flags().StringSliceVar(&evalMethods, "methods", nil, "valuation methods (PE_BAND,DCF,DDM,FUND_YIELD)")
	evaluateCmd.Flags().Float64Var(&evalAllocation, "allocation", -1, "current portfolio allocation 0~1, enables rebalance advice")
	evaluateCmd.Flags().Float64Var(&evalTarget, "target-allocation", 0, "target allocation 0~1 (default 0.10)")
	evaluateCmd.Flags().BoolVar(&evalSave, "save", false, "store the evaluation")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := evaluateRequest(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, oneShot(evalSave))
	if err != nil {
		return err
	}
	defer a.close()

	eval, err := a.pipeline.EvaluateSymbol(ctx, a.provider, req)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", req.Symbol, err)
	}

	if evalSave {
		if err := a.repo.Save(ctx, eval); err != nil {
			return fmt.Errorf("save evaluation: %w", err)
		}
		a.log.WithField("evaluation_id", eval.ID).Info("Evaluation saved")
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, eval)
	}
	renderEvaluation(out, eval)
	return nil
}

// evaluateRequest turns the flags into a pipeline request
func evaluateRequest(symbol string) (brain.EvaluateRequest, error) {
	req := brain.EvaluateRequest{
		Symbol:   strings.TrimSpace(symbol),
		Industry: evalIndustry,
	}

	market, err := contracts.ParseMarketCondition(evalMarket)
	if err != nil {
		return req, err
	}
	req.MarketCondition = market

	if len(evalMethods) > 0 {
		names := make([]contracts.MethodName, len(evalMethods))
		for i, m := range evalMethods {
			names[i] = contracts.MethodName(strings.ToUpper(strings.TrimSpace(m)))
		}
		req.Methods, err = valuation.MethodsByName(names)
		if err != nil {
			return req, err
		}
	}

	if evalAllocation >= 0 {
		if evalAllocation > 1 {
			return req, fmt.Errorf("--allocation must be within 0~1, got %v", evalAllocation)
		}
		pc := &contracts.PortfolioContext{CurrentAllocation: evalAllocation}
		if evalTarget > 0 {
			target := evalTarget
			pc.TargetAllocation = &target
		}
		req.Portfolio = pc
	}

	return req, nil
}
