package health

import (
	"math"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// neutralScore is assigned when a metric is absent
const neutralScore = 50.0

type scaleKind int

const (
	// linear: higher is better (60 at low ref → 90 at high ref)
	linear scaleKind = iota
	// inverse: lower is better (90 at low ref → 60 at high ref)
	inverse
)

// metricSpec describes how one metric feeds a category
type metricSpec struct {
	key       contracts.MetricKey
	transform func(float64) float64 // applied before clamping, nil = identity
	min, max  float64               // sane range
	scale     scaleKind
	lowRef    float64
	highRef   float64
	weight    float64 // share inside the category
}

// score maps a raw value to 0~100; extrapolates beyond the refs, then clamps
func (m metricSpec) score(raw float64) float64 {
	v := raw
	if m.transform != nil {
		v = m.transform(v)
	}
	v = math.Max(m.min, math.Min(m.max, v))

	pos := (v - m.lowRef) / (m.highRef - m.lowRef)
	var s float64
	switch m.scale {
	case inverse:
		s = 90 - pos*30
	default:
		s = 60 + pos*30
	}
	return math.Max(0, math.Min(100, s))
}

// Grade maps a 0~100 score to its fixed band
func Grade(score float64) contracts.Grade {
	switch {
	case score >= 90:
		return contracts.GradeExcellent
	case score >= 80:
		return contracts.GradeGood
	case score >= 70:
		return contracts.GradeAverage
	case score >= 60:
		return contracts.GradeBelowAverage
	case score >= 50:
		return contracts.GradePoor
	default:
		return contracts.GradeVeryPoor
	}
}

func log10(v float64) float64 { return math.Log10(v) }

// rsiDistance is how far RSI sits from the neutral 50
func rsiDistance(v float64) float64 { return math.Abs(v - 50) }

// negativeAsMax treats a non-positive multiple (loss-making) as the worst value
func negativeAsMax(max float64) func(float64) float64 {
	return func(v float64) float64 {
		if v <= 0 {
			return max
		}
		return v
	}
}

// categoryMetrics is the scoring table
// ⭐ SSOT: 카테고리별 지표/기준값/내부 가중치
var categoryMetrics = map[contracts.Category][]metricSpec{
	contracts.CategoryValuation: {
		{key: contracts.MetricPERatio, transform: negativeAsMax(100), min: 1, max: 100, scale: inverse, lowRef: 10, highRef: 25, weight: 0.5},
		{key: contracts.MetricPBRatio, transform: negativeAsMax(20), min: 0.1, max: 20, scale: inverse, lowRef: 1, highRef: 3, weight: 0.3},
		{key: contracts.MetricDividendYield, min: 0, max: 0.15, scale: linear, lowRef: 0.01, highRef: 0.04, weight: 0.2},
	},
	contracts.CategoryFundamentals: {
		{key: contracts.MetricROE, min: -0.5, max: 0.6, scale: linear, lowRef: 0.08, highRef: 0.20, weight: 0.4},
		{key: contracts.MetricROA, min: -0.3, max: 0.4, scale: linear, lowRef: 0.03, highRef: 0.10, weight: 0.3},
		{key: contracts.MetricNetMargin, min: -0.5, max: 0.6, scale: linear, lowRef: 0.05, highRef: 0.20, weight: 0.3},
	},
	contracts.CategoryGrowth: {
		{key: contracts.MetricRevenueGrowth, min: -0.5, max: 1.0, scale: linear, lowRef: 0, highRef: 0.15, weight: 0.5},
		{key: contracts.MetricEarningsGrowth, min: -1.0, max: 1.5, scale: linear, lowRef: 0, highRef: 0.20, weight: 0.5},
	},
	contracts.CategoryQuality: {
		{key: contracts.MetricROE, min: -0.5, max: 0.6, scale: linear, lowRef: 0.08, highRef: 0.20, weight: 0.4},
		{key: contracts.MetricOperatingMargin, min: -0.5, max: 0.7, scale: linear, lowRef: 0.08, highRef: 0.25, weight: 0.35},
		{key: contracts.MetricGrossMargin, min: -0.2, max: 1.0, scale: linear, lowRef: 0.20, highRef: 0.50, weight: 0.25},
	},
	contracts.CategoryRisk: {
		{key: contracts.MetricBeta, min: 0, max: 3, scale: inverse, lowRef: 0.8, highRef: 1.5, weight: 0.35},
		{key: contracts.MetricVolatility, min: 0, max: 150, scale: inverse, lowRef: 15, highRef: 40, weight: 0.35},
		{key: contracts.MetricMarketCap, transform: log10, min: 6, max: 14, scale: linear, lowRef: 9, highRef: 12, weight: 0.3},
	},
	contracts.CategoryTechnical: {
		{key: contracts.MetricPriceChange52W, min: -0.9, max: 3.0, scale: linear, lowRef: 0, highRef: 0.30, weight: 0.6},
		{key: contracts.MetricRSI, transform: rsiDistance, min: 0, max: 50, scale: inverse, lowRef: 5, highRef: 25, weight: 0.4},
	},
	contracts.CategoryLiquidity: {
		{key: contracts.MetricVolume, transform: log10, min: 0, max: 10, scale: linear, lowRef: 5, highRef: 7, weight: 0.4},
		{key: contracts.MetricMarketCap, transform: log10, min: 6, max: 14, scale: linear, lowRef: 9, highRef: 12, weight: 0.4},
		{key: contracts.MetricCurrentRatio, min: 0, max: 5, scale: linear, lowRef: 1, highRef: 2, weight: 0.2},
	},
}

// scoredMetrics lists every distinct metric the table reads
func scoredMetrics() []contracts.MetricKey {
	seen := make(map[contracts.MetricKey]bool)
	var keys []contracts.MetricKey
	for _, cat := range contracts.Categories() {
		for _, m := range categoryMetrics[cat] {
			if !seen[m.key] {
				seen[m.key] = true
				keys = append(keys, m.key)
			}
		}
	}
	return keys
}
