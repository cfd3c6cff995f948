package valuation

import (
	"fmt"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// FundYield prices a pooled fund by capitalising its trailing distribution
// at a target-yield band. A higher target yield implies a lower fair price.
type FundYield struct{}

func (FundYield) method() {}

// Name returns FUND_YIELD
func (FundYield) Name() contracts.MethodName { return contracts.MethodFundYield }

// Estimate computes D / {high, mid, low} target yield
func (FundYield) Estimate(in Input) (contracts.MethodFair, error) {
	name := contracts.MethodFundYield

	if in.DividendYield == nil || *in.DividendYield <= 0 {
		return notComputable(name, "no positive distribution yield"), nil
	}
	if in.Price <= 0 {
		return notComputable(name, "no positive price"), nil
	}
	t := in.TargetYields
	if !t.Valid() {
		return notComputable(name, fmt.Sprintf(
			"invalid target yield band %.4f/%.4f/%.4f", t.Low, t.Mid, t.High)), nil
	}

	y := *in.DividendYield
	distribution := in.Price * y

	fairHigh := distribution / t.High
	fairMid := distribution / t.Mid
	fairLow := distribution / t.Low

	confidence := 0.65
	var limitations []string
	if y > 0.04 && y < 0.12 {
		confidence += 0.1
	} else {
		limitations = append(limitations, "yield outside the typical 4~12% range")
	}
	if in.ExpenseRatio != nil && *in.ExpenseRatio < 0.005 {
		confidence += 0.1
	}
	if in.TrackingError != nil && *in.TrackingError < 0.01 {
		confidence += 0.1
	}

	assumptions := []string{
		fmt.Sprintf("trailing distribution %.4f", distribution),
		fmt.Sprintf("target yields %s / %s / %s", pct(t.Low), pct(t.Mid), pct(t.High)),
	}
	return band(name, fairLow, fairMid, fairHigh, confidence, assumptions, limitations), nil
}
