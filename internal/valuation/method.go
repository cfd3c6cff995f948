package valuation

import (
	"fmt"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// Method is one fair-value estimator
// The set is closed: PEBand, DCF, DDM and FundYield are the only implementations.
type Method interface {
	Name() contracts.MethodName
	Estimate(in Input) (contracts.MethodFair, error)
	method()
}

// DefaultMethods returns the applicable methods for a market category
func DefaultMethods(category contracts.MarketCategory) []Method {
	if category == contracts.MarketFund {
		return []Method{FundYield{}, DDM{}}
	}
	return []Method{PEBand{}, DCF{}, DDM{}}
}

// MethodByName resolves a method name (as sent by API/CLI callers)
func MethodByName(name contracts.MethodName) (Method, error) {
	switch name {
	case contracts.MethodPEBand:
		return PEBand{}, nil
	case contracts.MethodDCF:
		return DCF{}, nil
	case contracts.MethodDDM:
		return DDM{}, nil
	case contracts.MethodFundYield:
		return FundYield{}, nil
	default:
		return nil, fmt.Errorf("unknown valuation method %q", name)
	}
}

// MethodsByName resolves a list of names, failing on the first unknown one
func MethodsByName(names []contracts.MethodName) ([]Method, error) {
	methods := make([]Method, 0, len(names))
	for _, n := range names {
		m, err := MethodByName(n)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// notComputable is the shared "missing precondition" result
func notComputable(name contracts.MethodName, limitation string, assumptions ...string) contracts.MethodFair {
	if assumptions == nil {
		assumptions = []string{}
	}
	return contracts.MethodFair{
		Method:      name,
		Confidence:  0,
		Assumptions: assumptions,
		Limitations: []string{limitation},
	}
}

// band builds a computable result
func band(name contracts.MethodName, low, mid, high, confidence float64, assumptions, limitations []string) contracts.MethodFair {
	if limitations == nil {
		limitations = []string{}
	}
	return contracts.MethodFair{
		Method:      name,
		FairLow:     &low,
		FairMid:     &mid,
		FairHigh:    &high,
		Confidence:  clamp01(confidence),
		Assumptions: assumptions,
		Limitations: limitations,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func between(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
