package entryprice

import (
	"fmt"
	"math"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// Safety margins off the composite fair mid
const (
	conservativeMargin = 0.15
	moderateMargin     = 0.10
	aggressiveMargin   = 0.05

	// deviation beyond which a buy/wait suggestion is emitted
	actionDeviation = 0.10
)

var riskMultiplier = map[contracts.RiskLevel]float64{
	contracts.RiskLow:    1.0,
	contracts.RiskMedium: 0.95,
	contracts.RiskHigh:   0.90,
}

var regimeMultiplier = map[contracts.MarketCondition]float64{
	contracts.MarketBullish: 1.05,
	contracts.MarketNeutral: 1.0,
	contracts.MarketBearish: 0.95,
}

var industryMultiplier = map[string]float64{
	scoreweights.IndustrySemiconductor: 1.08,
	scoreweights.IndustryTechnology:    1.05,
	scoreweights.IndustryBiotech:       0.95,
	scoreweights.IndustryUtilities:     0.97,
	scoreweights.IndustryBanking:       0.93,
}

var marketDescription = map[contracts.MarketCondition]string{
	contracts.MarketBullish: "bullish market: entries lifted 5% to avoid missing the move",
	contracts.MarketNeutral: "neutral market: no regime adjustment",
	contracts.MarketBearish: "bearish market: entries lowered 5% for extra margin",
}

// Request is the input of one entry-price calculation
type Request struct {
	Valuation   *contracts.ValuationResult
	HealthScore float64 // 0 ~ 100
	Market      contracts.MarketCondition
	Industry    string
}

// Calculator derives risk-tiered entry prices from the composite fair value
// ⭐ SSOT: 진입가 계산 (안전마진 → 리스크 → 시장 → 업종)
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

// Calculate returns an *InsufficientDataError when there is no composite fair value
func (c *Calculator) Calculate(req Request) (*contracts.EntryPriceResult, error) {
	val := req.Valuation
	if val == nil {
		return nil, &InsufficientDataError{Reason: "valuation result missing"}
	}
	if val.CompositeFair == nil {
		return nil, &InsufficientDataError{Symbol: val.Symbol, Reason: "every valuation method had zero confidence"}
	}

	market := req.Market
	if _, ok := regimeMultiplier[market]; !ok {
		market = contracts.MarketNeutral
	}
	industry := scoreweights.NormalizeIndustry(req.Industry)
	indMult := IndustryMultiplier(industry)
	risk := RiskLevel(req.HealthScore)
	fair := *val.CompositeFair

	base := contracts.PriceTiers{
		Conservative: fair.Mid * (1 - conservativeMargin),
		Moderate:     fair.Mid * (1 - moderateMargin),
		Aggressive:   fair.Mid * (1 - aggressiveMargin),
	}
	recommended := base.Scale(indMult)
	riskAdjusted := recommended.Scale(riskMultiplier[risk])

	variants := make(map[contracts.MarketCondition]contracts.PriceTiers, len(regimeMultiplier))
	for cond, m := range regimeMultiplier {
		variants[cond] = riskAdjusted.Scale(m)
	}

	result := &contracts.EntryPriceResult{
		Symbol:                val.Symbol,
		CurrentPrice:          val.Price,
		FairValue:             fair,
		RecommendedEntryPrice: recommended,
		RiskAdjustedPrice:     riskAdjusted,
		MarketAdjustedPrice:   variants[market],
		RegimeVariants:        variants,
		RiskLevel:             risk,
		MarketCondition:       market,
		IndustryMultiplier:    indMult,
		Confidence:            clamp01(0.7*val.Confidence + 0.3*req.HealthScore/100),
	}
	result.Reasoning = reasoning(result, req.HealthScore, industry)

	c.logger.WithFields(map[string]interface{}{
		"symbol":   val.Symbol,
		"moderate": result.MarketAdjustedPrice.Moderate,
		"risk":     risk,
		"market":   market,
		"industry": industry,
	}).Debug("entry price calculated")

	return result, nil
}

// RiskLevel buckets a health score: ≥85 LOW, ≥65 MEDIUM, else HIGH
func RiskLevel(health float64) contracts.RiskLevel {
	switch {
	case health >= 85:
		return contracts.RiskLow
	case health >= 65:
		return contracts.RiskMedium
	default:
		return contracts.RiskHigh
	}
}

// IndustryMultiplier returns 1.0 for unknown industries
func IndustryMultiplier(industry string) float64 {
	if m, ok := industryMultiplier[scoreweights.NormalizeIndustry(industry)]; ok {
		return m
	}
	return 1.0
}

func reasoning(r *contracts.EntryPriceResult, health float64, industry string) []string {
	lines := []string{}
	price := r.CurrentPrice
	fair := r.FairValue

	switch {
	case price < fair.Low:
		lines = append(lines, fmt.Sprintf("price %.2f is below the fair band %.2f ~ %.2f", price, fair.Low, fair.High))
	case price > fair.High:
		lines = append(lines, fmt.Sprintf("price %.2f is above the fair band %.2f ~ %.2f", price, fair.Low, fair.High))
	default:
		lines = append(lines, fmt.Sprintf("price %.2f is inside the fair band %.2f ~ %.2f (mid %.2f)", price, fair.Low, fair.High, fair.Mid))
	}

	switch r.RiskLevel {
	case contracts.RiskLow:
		lines = append(lines, fmt.Sprintf("low risk (health %.0f): standard safety margins", health))
	case contracts.RiskMedium:
		lines = append(lines, fmt.Sprintf("medium risk (health %.0f): entries lowered 5%%", health))
	default:
		lines = append(lines, fmt.Sprintf("high risk (health %.0f): entries lowered 10%%", health))
	}

	lines = append(lines, marketDescription[r.MarketCondition])

	if r.IndustryMultiplier != 1.0 {
		lines = append(lines, fmt.Sprintf("%s industry multiplier %.2f applied", industry, r.IndustryMultiplier))
	}

	moderate := r.MarketAdjustedPrice.Moderate
	if moderate > 0 && price > 0 {
		dev := (price - moderate) / moderate
		switch {
		case dev > actionDeviation:
			lines = append(lines, fmt.Sprintf("price is %.1f%% above the moderate entry %.2f: wait for a pullback", dev*100, moderate))
		case dev < -actionDeviation:
			lines = append(lines, fmt.Sprintf("price is %.1f%% below the moderate entry %.2f: consider buying", -dev*100, moderate))
		}
	}
	return lines
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
