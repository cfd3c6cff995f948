package valuation

import (
	"math"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// Defaults applied by NewInput when an assumption is not supplied
const (
	DefaultGrowthRate      = 0.05
	DefaultDiscountRate    = 0.10
	DefaultTerminalGrowth  = 0.02
	DefaultDividendGrowth  = 0.03
	DefaultDDMDiscountRate = 0.08
	DefaultMarginOfSafety  = 0.20

	// FCF is approximated from EPS when not reported
	fcfFromEPSRatio = 0.7
	// sustainable growth derived from ROE is capped here
	maxSustainableGrowth = 0.15
)

// PERange is a low/high P/E multiple range
type PERange struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// YieldBand is the target-yield band used by the fund-yield method
type YieldBand struct {
	Low  float64 `json:"low" yaml:"low"`
	Mid  float64 `json:"mid" yaml:"mid"`
	High float64 `json:"high" yaml:"high"`
}

// DefaultYieldBand is the target band for pooled funds
func DefaultYieldBand() YieldBand {
	return YieldBand{Low: 0.05, Mid: 0.06, High: 0.07}
}

// Valid reports whether 0 < low <= mid <= high
func (b YieldBand) Valid() bool {
	return b.Low > 0 && b.Low <= b.Mid && b.Mid <= b.High
}

// Assumptions are caller overrides; nil fields fall back to derivations or defaults
type Assumptions struct {
	GrowthRate      *float64   `json:"growth_rate,omitempty" yaml:"growth_rate,omitempty"`
	DiscountRate    *float64   `json:"discount_rate,omitempty" yaml:"discount_rate,omitempty"`
	TerminalGrowth  *float64   `json:"terminal_growth,omitempty" yaml:"terminal_growth,omitempty"`
	PEBand          *PERange   `json:"pe_band,omitempty" yaml:"pe_band,omitempty"`
	EPSCAGR         *float64   `json:"eps_cagr,omitempty" yaml:"eps_cagr,omitempty"`
	DividendGrowth  *float64   `json:"dividend_growth,omitempty" yaml:"dividend_growth,omitempty"`
	DDMDiscountRate *float64   `json:"ddm_discount_rate,omitempty" yaml:"ddm_discount_rate,omitempty"`
	TargetYields    *YieldBand `json:"target_yields,omitempty" yaml:"target_yields,omitempty"`
	MarginOfSafety  *float64   `json:"margin_of_safety,omitempty" yaml:"margin_of_safety,omitempty"`
}

// Input is the per-evaluation projection of a snapshot plus assumptions
// Built fresh for every evaluation and never shared.
type Input struct {
	Symbol   string
	Category contracts.MarketCategory
	Price    float64

	EPS         *float64 // TTM
	ForwardEPS  *float64
	FCFPerShare *float64
	FCFReported bool

	DividendYield *float64
	ExpenseRatio  *float64
	TrackingError *float64

	// DCF
	GrowthRate     float64
	DiscountRate   float64
	TerminalGrowth float64

	// PE-Band
	PEBand         *PERange
	PEBandSupplied bool
	EPSCAGR        *float64

	// DDM
	DividendGrowth  float64
	DDMDiscountRate float64

	// Fund-Yield
	TargetYields YieldBand

	MarginOfSafety float64
}

// NewInput projects a snapshot into a valuation input
// ⭐ SSOT: snapshot → valuation assumptions 파생 규칙
func NewInput(s *contracts.Snapshot, a Assumptions) Input {
	if s == nil {
		s = &contracts.Snapshot{}
	}
	in := Input{
		Symbol:          s.Symbol,
		Category:        s.MarketCategory,
		Price:           s.Price,
		ForwardEPS:      metricPtr(s, contracts.MetricForwardEPS),
		DividendYield:   metricPtr(s, contracts.MetricDividendYield),
		ExpenseRatio:    metricPtr(s, contracts.MetricExpenseRatio),
		TrackingError:   metricPtr(s, contracts.MetricTrackingError),
		DiscountRate:    orDefault(a.DiscountRate, DefaultDiscountRate),
		TerminalGrowth:  orDefault(a.TerminalGrowth, DefaultTerminalGrowth),
		DividendGrowth:  orDefault(a.DividendGrowth, DefaultDividendGrowth),
		DDMDiscountRate: orDefault(a.DDMDiscountRate, DefaultDDMDiscountRate),
		MarginOfSafety:  orDefault(a.MarginOfSafety, DefaultMarginOfSafety),
		TargetYields:    DefaultYieldBand(),
	}
	if in.Category == "" {
		in.Category = contracts.MarketEquity
	}

	pe, hasPE := s.Metric(contracts.MetricPERatio)

	// TTM EPS, else backed out of price / P/E
	if eps, ok := s.Metric(contracts.MetricEPS); ok {
		in.EPS = &eps
	} else if hasPE && pe > 0 && s.Price > 0 {
		eps := s.Price / pe
		in.EPS = &eps
	}

	// FCF per share, else EPS × 0.7
	if fcf, ok := s.Metric(contracts.MetricFCFPerShare); ok {
		in.FCFPerShare = &fcf
		in.FCFReported = true
	} else if in.EPS != nil {
		fcf := *in.EPS * fcfFromEPSRatio
		in.FCFPerShare = &fcf
	}

	// P/E band: supplied, else current P/E × {0.8, 1.2}
	if a.PEBand != nil {
		r := *a.PEBand
		in.PEBand = &r
		in.PEBandSupplied = true
	} else if hasPE && pe > 0 {
		in.PEBand = &PERange{Low: pe * 0.8, High: pe * 1.2}
	}

	// EPS CAGR: supplied, else reported earnings growth
	if a.EPSCAGR != nil {
		v := *a.EPSCAGR
		in.EPSCAGR = &v
	} else if g, ok := s.Metric(contracts.MetricEarningsGrowth); ok {
		in.EPSCAGR = &g
	}

	in.GrowthRate = growthRate(s, a, pe, hasPE)

	if a.TargetYields != nil {
		in.TargetYields = *a.TargetYields
	}

	return in
}

// growthRate picks the DCF growth: supplied → earnings growth → sustainable growth → default
func growthRate(s *contracts.Snapshot, a Assumptions, pe float64, hasPE bool) float64 {
	if a.GrowthRate != nil {
		return *a.GrowthRate
	}
	if g, ok := s.Metric(contracts.MetricEarningsGrowth); ok {
		return g
	}
	if roe, ok := s.Metric(contracts.MetricROE); ok {
		payout := 0.0
		if y, ok := s.Metric(contracts.MetricDividendYield); ok && hasPE && pe > 0 {
			payout = math.Min(1, math.Max(0, y*pe))
		}
		return math.Max(0, math.Min(maxSustainableGrowth, roe*(1-payout)))
	}
	return DefaultGrowthRate
}

func metricPtr(s *contracts.Snapshot, key contracts.MetricKey) *float64 {
	if v, ok := s.Metric(key); ok {
		return &v
	}
	return nil
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
