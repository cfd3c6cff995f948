package contracts

import (
	"math"
	"time"
)

// MarketCategory distinguishes single equities from pooled funds
type MarketCategory string

const (
	MarketEquity MarketCategory = "EQUITY"
	MarketFund   MarketCategory = "FUND"
)

// Snapshot is the raw instrument record handed to the pipeline
// ⭐ SSOT: every optional metric lives here as an explicit nullable field
// The pipeline never mutates a Snapshot.
type Snapshot struct {
	Symbol         string         `json:"symbol" yaml:"symbol"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	MarketCategory MarketCategory `json:"market_category" yaml:"market_category"`
	Industry       string         `json:"industry,omitempty" yaml:"industry,omitempty"`

	Price     float64 `json:"price" yaml:"price"`
	Volume    float64 `json:"volume" yaml:"volume"`
	MarketCap float64 `json:"market_cap" yaml:"market_cap"`

	// Valuation
	PERatio       *float64 `json:"pe_ratio,omitempty" yaml:"pe_ratio,omitempty"`
	PBRatio       *float64 `json:"pb_ratio,omitempty" yaml:"pb_ratio,omitempty"`
	PSRatio       *float64 `json:"ps_ratio,omitempty" yaml:"ps_ratio,omitempty"`
	EPS           *float64 `json:"eps,omitempty" yaml:"eps,omitempty"`                   // TTM
	ForwardEPS    *float64 `json:"forward_eps,omitempty" yaml:"forward_eps,omitempty"`   // next fiscal year
	FCFPerShare   *float64 `json:"fcf_per_share,omitempty" yaml:"fcf_per_share,omitempty"`
	BookValuePS   *float64 `json:"book_value_ps,omitempty" yaml:"book_value_ps,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty" yaml:"dividend_yield,omitempty"` // 0.02 = 2%

	// Profitability (fractions)
	ROE             *float64 `json:"roe,omitempty" yaml:"roe,omitempty"`
	ROA             *float64 `json:"roa,omitempty" yaml:"roa,omitempty"`
	GrossMargin     *float64 `json:"gross_margin,omitempty" yaml:"gross_margin,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty" yaml:"operating_margin,omitempty"`
	NetMargin       *float64 `json:"net_margin,omitempty" yaml:"net_margin,omitempty"`

	// Growth (fractions, YoY)
	RevenueGrowth  *float64 `json:"revenue_growth,omitempty" yaml:"revenue_growth,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty" yaml:"earnings_growth,omitempty"`

	// Balance sheet
	DebtToEquity *float64 `json:"debt_to_equity,omitempty" yaml:"debt_to_equity,omitempty"`
	CurrentRatio *float64 `json:"current_ratio,omitempty" yaml:"current_ratio,omitempty"`
	QuickRatio   *float64 `json:"quick_ratio,omitempty" yaml:"quick_ratio,omitempty"`

	// Risk & technical
	Beta           *float64 `json:"beta,omitempty" yaml:"beta,omitempty"`
	Volatility     *float64 `json:"volatility,omitempty" yaml:"volatility,omitempty"`             // annualised, percent
	PriceChange52W *float64 `json:"price_change_52w,omitempty" yaml:"price_change_52w,omitempty"` // 0.15 = +15%
	RSI            *float64 `json:"rsi,omitempty" yaml:"rsi,omitempty"`                           // 0 ~ 100

	// Fund only
	ExpenseRatio  *float64 `json:"expense_ratio,omitempty" yaml:"expense_ratio,omitempty"`
	TrackingError *float64 `json:"tracking_error,omitempty" yaml:"tracking_error,omitempty"`

	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
}

// MetricKey names one of the snapshot's metrics
// The set is closed: lookups only accept the constants below.
type MetricKey string

const (
	MetricPrice           MetricKey = "price"
	MetricVolume          MetricKey = "volume"
	MetricMarketCap       MetricKey = "market_cap"
	MetricPERatio         MetricKey = "pe_ratio"
	MetricPBRatio         MetricKey = "pb_ratio"
	MetricPSRatio         MetricKey = "ps_ratio"
	MetricEPS             MetricKey = "eps"
	MetricForwardEPS      MetricKey = "forward_eps"
	MetricFCFPerShare     MetricKey = "fcf_per_share"
	MetricBookValuePS     MetricKey = "book_value_ps"
	MetricDividendYield   MetricKey = "dividend_yield"
	MetricROE             MetricKey = "roe"
	MetricROA             MetricKey = "roa"
	MetricGrossMargin     MetricKey = "gross_margin"
	MetricOperatingMargin MetricKey = "operating_margin"
	MetricNetMargin       MetricKey = "net_margin"
	MetricRevenueGrowth   MetricKey = "revenue_growth"
	MetricEarningsGrowth  MetricKey = "earnings_growth"
	MetricDebtToEquity    MetricKey = "debt_to_equity"
	MetricCurrentRatio    MetricKey = "current_ratio"
	MetricQuickRatio      MetricKey = "quick_ratio"
	MetricBeta            MetricKey = "beta"
	MetricVolatility      MetricKey = "volatility"
	MetricPriceChange52W  MetricKey = "price_change_52w"
	MetricRSI             MetricKey = "rsi"
	MetricExpenseRatio    MetricKey = "expense_ratio"
	MetricTrackingError   MetricKey = "tracking_error"
)

// AllMetricKeys lists every known metric in a stable order
func AllMetricKeys() []MetricKey {
	return []MetricKey{
		MetricPrice, MetricVolume, MetricMarketCap,
		MetricPERatio, MetricPBRatio, MetricPSRatio, MetricEPS, MetricForwardEPS,
		MetricFCFPerShare, MetricBookValuePS, MetricDividendYield,
		MetricROE, MetricROA, MetricGrossMargin, MetricOperatingMargin, MetricNetMargin,
		MetricRevenueGrowth, MetricEarningsGrowth,
		MetricDebtToEquity, MetricCurrentRatio, MetricQuickRatio,
		MetricBeta, MetricVolatility, MetricPriceChange52W, MetricRSI,
		MetricExpenseRatio, MetricTrackingError,
	}
}

// Metric returns the value for key and whether it is present.
// Price, volume and market cap count as present only when positive.
func (s *Snapshot) Metric(key MetricKey) (float64, bool) {
	if s == nil {
		return 0, false
	}

	switch key {
	case MetricPrice:
		return s.Price, s.Price > 0
	case MetricVolume:
		return s.Volume, s.Volume > 0
	case MetricMarketCap:
		return s.MarketCap, s.MarketCap > 0
	case MetricPERatio:
		return deref(s.PERatio)
	case MetricPBRatio:
		return deref(s.PBRatio)
	case MetricPSRatio:
		return deref(s.PSRatio)
	case MetricEPS:
		return deref(s.EPS)
	case MetricForwardEPS:
		return deref(s.ForwardEPS)
	case MetricFCFPerShare:
		return deref(s.FCFPerShare)
	case MetricBookValuePS:
		return deref(s.BookValuePS)
	case MetricDividendYield:
		return deref(s.DividendYield)
	case MetricROE:
		return deref(s.ROE)
	case MetricROA:
		return deref(s.ROA)
	case MetricGrossMargin:
		return deref(s.GrossMargin)
	case MetricOperatingMargin:
		return deref(s.OperatingMargin)
	case MetricNetMargin:
		return deref(s.NetMargin)
	case MetricRevenueGrowth:
		return deref(s.RevenueGrowth)
	case MetricEarningsGrowth:
		return deref(s.EarningsGrowth)
	case MetricDebtToEquity:
		return deref(s.DebtToEquity)
	case MetricCurrentRatio:
		return deref(s.CurrentRatio)
	case MetricQuickRatio:
		return deref(s.QuickRatio)
	case MetricBeta:
		return deref(s.Beta)
	case MetricVolatility:
		return deref(s.Volatility)
	case MetricPriceChange52W:
		return deref(s.PriceChange52W)
	case MetricRSI:
		return deref(s.RSI)
	case MetricExpenseRatio:
		return deref(s.ExpenseRatio)
	case MetricTrackingError:
		return deref(s.TrackingError)
	default:
		return 0, false
	}
}

// IsFund reports whether the snapshot describes a pooled fund
func (s *Snapshot) IsFund() bool {
	return s != nil && s.MarketCategory == MarketFund
}

// Float returns a pointer to v, for building snapshots in code
func Float(v float64) *float64 {
	return &v
}

func deref(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}
