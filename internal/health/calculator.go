package health

import (
	"math"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// Report thresholds
const (
	strengthThreshold = 80.0
	weaknessThreshold = 60.0
	incomeYield       = 0.04
)

var weakCategoryAdvice = map[contracts.Category]string{
	contracts.CategoryValuation:    "valuation looks stretched; wait for a better entry price",
	contracts.CategoryFundamentals: "profitability is weak; monitor ROE and margins",
	contracts.CategoryGrowth:       "growth is sluggish; confirm the revenue and earnings trend",
	contracts.CategoryQuality:      "earnings quality is low; check margin stability",
	contracts.CategoryRisk:         "risk is elevated; size the position conservatively",
	contracts.CategoryTechnical:    "price momentum is weak; wait for a trend confirmation",
	contracts.CategoryLiquidity:    "liquidity is thin; use limit orders and smaller lots",
}

const riskMitigationNote = "risk factors present; diversify and set a stop loss"

// Calculator converts snapshot metrics into a health report
// ⭐ SSOT: Health score 계산 (카테고리 점수 → 가중합 → 등급)
// Stateless: weights are passed per call.
type Calculator struct {
	logger *logger.Logger
}

// NewCalculator creates a new Calculator
func NewCalculator(log *logger.Logger) *Calculator {
	if log == nil {
		log = logger.Nop()
	}
	return &Calculator{logger: log}
}

// Calculate scores every category of s under weights
// weights are renormalized first; nil means the default weights.
func (c *Calculator) Calculate(s *contracts.Snapshot, weights map[contracts.Category]float64, dataQuality float64) *contracts.HealthReport {
	if s == nil {
		s = &contracts.Snapshot{}
	}
	var w scoreweights.Weights
	if weights == nil {
		w = scoreweights.DefaultWeights()
	} else {
		w = scoreweights.Normalize(weights)
	}

	report := &contracts.HealthReport{
		Symbol:          s.Symbol,
		Industry:        s.Industry,
		Categories:      make(map[contracts.Category]contracts.CategoryScore, len(contracts.Categories())),
		Weights:         w,
		RiskFactors:     riskFactors(s),
		Strengths:       []contracts.Category{},
		Weaknesses:      []contracts.Category{},
		Recommendations: []string{},
		DataQuality:     dataQuality,
	}

	total := 0.0
	for _, cat := range contracts.Categories() {
		cs := scoreCategory(s, cat, w[cat])
		report.Categories[cat] = cs
		total += cs.WeightedScore

		switch {
		case cs.Score >= strengthThreshold:
			report.Strengths = append(report.Strengths, cat)
		case cs.Score < weaknessThreshold:
			report.Weaknesses = append(report.Weaknesses, cat)
			report.Recommendations = append(report.Recommendations, weakCategoryAdvice[cat])
		}
	}
	if len(report.RiskFactors) > 0 {
		report.Recommendations = append(report.Recommendations, riskMitigationNote)
	}

	report.OverallScore = int(math.Round(math.Max(0, math.Min(100, total))))
	report.OverallGrade = Grade(float64(report.OverallScore))
	report.Confidence = 0.5 + 0.5*coverage(s)
	report.Suitability = suitability(s, report)

	c.logger.WithFields(map[string]interface{}{
		"symbol":       s.Symbol,
		"overall":      report.OverallScore,
		"grade":        report.OverallGrade,
		"risk_factors": len(report.RiskFactors),
	}).Debug("health score calculated")

	return report
}

// scoreCategory = Σ sub-score × internal weight
func scoreCategory(s *contracts.Snapshot, cat contracts.Category, weight float64) contracts.CategoryScore {
	specs := categoryMetrics[cat]
	cs := contracts.CategoryScore{
		Category:        cat,
		Weight:          weight,
		Factors:         make([]contracts.Factor, 0, len(specs)),
		Recommendations: []string{},
	}

	score := 0.0
	for _, m := range specs {
		f := contracts.Factor{Metric: m.key, Weight: m.weight, Score: neutralScore}
		if v, ok := s.Metric(m.key); ok {
			val := v
			f.Value = &val
			f.Present = true
			f.Score = m.score(v)
		}
		cs.Factors = append(cs.Factors, f)
		score += f.Score * m.weight
	}

	cs.Score = math.Max(0, math.Min(100, score))
	cs.Grade = Grade(cs.Score)
	cs.WeightedScore = cs.Score * weight
	if cs.Score < weaknessThreshold {
		cs.Recommendations = append(cs.Recommendations, weakCategoryAdvice[cat])
	}
	return cs
}

// riskFactors derives heuristic warnings from raw metrics
func riskFactors(s *contracts.Snapshot) []string {
	factors := []string{}
	if v, ok := s.Metric(contracts.MetricVolatility); ok && v > 30 {
		factors = append(factors, "high volatility")
	}
	if v, ok := s.Metric(contracts.MetricBeta); ok && v > 1.2 {
		factors = append(factors, "market sensitivity (beta > 1.2)")
	}
	if v, ok := s.Metric(contracts.MetricDebtToEquity); ok && v > 2 {
		factors = append(factors, "high leverage (debt/equity > 2)")
	}
	if v, ok := s.Metric(contracts.MetricCurrentRatio); ok && v < 1 {
		factors = append(factors, "weak short-term liquidity (current ratio < 1)")
	}
	if v, ok := s.Metric(contracts.MetricEarningsGrowth); ok && v < 0 {
		factors = append(factors, "declining earnings")
	}
	if v, ok := s.Metric(contracts.MetricNetMargin); ok && v < 0 {
		factors = append(factors, "loss-making (negative net margin)")
	}
	return factors
}

// coverage is the share of scored metrics that are present
func coverage(s *contracts.Snapshot) float64 {
	keys := scoredMetrics()
	present := 0
	for _, k := range keys {
		if _, ok := s.Metric(k); ok {
			present++
		}
	}
	return float64(present) / float64(len(keys))
}

func suitability(s *contracts.Snapshot, r *contracts.HealthReport) contracts.Suitability {
	switch {
	case r.OverallScore < 50 || len(r.RiskFactors) >= 3:
		return contracts.SuitabilitySpeculative
	case r.OverallScore >= 80 && len(r.RiskFactors) == 0:
		return contracts.SuitabilityCoreHolding
	case r.Categories[contracts.CategoryGrowth].Score >= 80:
		return contracts.SuitabilityGrowth
	}
	if y, ok := s.Metric(contracts.MetricDividendYield); ok && y >= incomeYield {
		return contracts.SuitabilityIncome
	}
	return contracts.SuitabilityWatchlist
}
