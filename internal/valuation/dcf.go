package valuation

import (
	"fmt"
	"math"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// DCFProjectionYears is the explicit forecast horizon
const DCFProjectionYears = 10

// DCF discounts projected free cash flow per share plus a Gordon terminal value
type DCF struct{}

func (DCF) method() {}

// Name returns DCF
func (DCF) Name() contracts.MethodName { return contracts.MethodDCF }

// Estimate projects FCF for DCFProjectionYears and discounts it back
func (DCF) Estimate(in Input) (contracts.MethodFair, error) {
	name := contracts.MethodDCF

	if in.FCFPerShare == nil || *in.FCFPerShare <= 0 {
		return notComputable(name, "no positive free cash flow per share"), nil
	}
	if in.DiscountRate <= in.TerminalGrowth {
		return notComputable(name, fmt.Sprintf(
			"discount rate %s must exceed terminal growth %s", pct(in.DiscountRate), pct(in.TerminalGrowth))), nil
	}

	fcf := *in.FCFPerShare
	mid := presentValue(fcf, in.GrowthRate, in.DiscountRate, in.TerminalGrowth, DCFProjectionYears)
	if math.IsNaN(mid) || math.IsInf(mid, 0) || mid <= 0 {
		return notComputable(name, "projection did not produce a positive value"), nil
	}

	assumptions := []string{
		fmt.Sprintf("FCF/share %.2f", fcf),
		"growth " + pct(in.GrowthRate),
		"discount " + pct(in.DiscountRate),
		"terminal growth " + pct(in.TerminalGrowth),
		fmt.Sprintf("%d-year projection", DCFProjectionYears),
	}

	confidence := 0.6
	var limitations []string
	if in.FCFReported {
		confidence += 0.1
	} else {
		limitations = append(limitations, "FCF approximated as 70% of EPS")
	}
	if between(in.GrowthRate, 0, 0.25) {
		confidence += 0.05
	} else {
		limitations = append(limitations, "growth assumption outside 0~25%")
	}
	if between(in.DiscountRate, 0.08, 0.15) {
		confidence += 0.05
	}
	if between(in.TerminalGrowth, 0, 0.03) {
		confidence += 0.05
	}

	return band(name, mid*0.8, mid, mid*1.2, confidence, assumptions, limitations), nil
}

// presentValue = Σ FCF(1+g)^t/(1+r)^t + TV/(1+r)^n, TV = FCF_n(1+tg)/(r−tg)
func presentValue(fcf, growth, discount, terminal float64, years int) float64 {
	pv := 0.0
	projected := fcf
	for year := 1; year <= years; year++ {
		projected *= 1 + growth
		pv += projected / math.Pow(1+discount, float64(year))
	}

	terminalValue := projected * (1 + terminal) / (discount - terminal)
	pv += terminalValue / math.Pow(1+discount, float64(years))
	return pv
}
