package valuation

import (
	"fmt"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// PEBand values earnings at a low/mid/high P/E multiple
type PEBand struct{}

func (PEBand) method() {}

// Name returns PE_BAND
func (PEBand) Name() contracts.MethodName { return contracts.MethodPEBand }

// Estimate computes EPS × {low, (low+high)/2, high}
func (PEBand) Estimate(in Input) (contracts.MethodFair, error) {
	name := contracts.MethodPEBand

	var eps float64
	forward := false
	switch {
	case in.ForwardEPS != nil && *in.ForwardEPS > 0:
		eps = *in.ForwardEPS
		forward = true
	case in.EPS != nil && *in.EPS > 0:
		eps = *in.EPS
	default:
		return notComputable(name, "no positive EPS (forward or TTM) available"), nil
	}

	if in.PEBand == nil {
		return notComputable(name, "no P/E band available"), nil
	}
	b := *in.PEBand
	if b.Low <= 0 || b.High < b.Low {
		return notComputable(name, fmt.Sprintf("invalid P/E band [%.2f, %.2f]", b.Low, b.High)), nil
	}

	confidence := 0.6
	assumptions := []string{fmt.Sprintf("P/E band %.1fx ~ %.1fx", b.Low, b.High)}
	if forward {
		confidence += 0.15
		assumptions = append(assumptions, fmt.Sprintf("forward EPS %.2f", eps))
	} else {
		assumptions = append(assumptions, fmt.Sprintf("TTM EPS %.2f", eps))
	}
	if in.EPSCAGR != nil {
		confidence += 0.1
		assumptions = append(assumptions, "EPS CAGR "+pct(*in.EPSCAGR))
	}

	var limitations []string
	if in.PEBandSupplied {
		confidence += 0.1
	} else {
		limitations = append(limitations, "P/E band derived from current multiple")
	}

	mid := (b.Low + b.High) / 2
	return band(name, eps*b.Low, eps*mid, eps*b.High, confidence, assumptions, limitations), nil
}
