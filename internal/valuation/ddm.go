package valuation

import (
	"fmt"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// ddmGrowthStep is the ±growth shift used for the low/high bounds
const ddmGrowthStep = 0.01

// DDM is the single-stage Gordon growth dividend discount model
type DDM struct{}

func (DDM) method() {}

// Name returns DDM
func (DDM) Name() contracts.MethodName { return contracts.MethodDDM }

// Estimate values D1 = price×yield×(1+g) at (r − g)
func (DDM) Estimate(in Input) (contracts.MethodFair, error) {
	name := contracts.MethodDDM

	if in.DividendYield == nil || *in.DividendYield <= 0 {
		return notComputable(name, "no positive dividend yield"), nil
	}
	if in.Price <= 0 {
		return notComputable(name, "no positive price to back out the dividend"), nil
	}
	r, g := in.DDMDiscountRate, in.DividendGrowth
	if r <= g {
		return notComputable(name, fmt.Sprintf(
			"discount rate %s must exceed dividend growth %s", pct(r), pct(g))), nil
	}

	d0 := in.Price * *in.DividendYield
	mid := gordon(d0, g, r)

	low := gordon(d0, g-ddmGrowthStep, r)
	high := mid
	var limitations []string
	if g+ddmGrowthStep < r {
		high = gordon(d0, g+ddmGrowthStep, r)
	} else {
		limitations = append(limitations, "upper growth bound reaches discount rate; high capped at mid")
	}

	confidence := 0.6 + 0.1 // positive yield is a precondition
	if between(g, 0, 0.06) {
		confidence += 0.05
	}
	if between(r, 0.06, 0.12) {
		confidence += 0.05
	}

	assumptions := []string{
		fmt.Sprintf("D0 %.2f (yield %s)", d0, pct(*in.DividendYield)),
		"dividend growth " + pct(g),
		"required return " + pct(r),
	}
	return band(name, low, mid, high, confidence, assumptions, limitations), nil
}

func gordon(d0, g, r float64) float64 {
	return d0 * (1 + g) / (r - g)
}
