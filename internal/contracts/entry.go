package contracts

import (
	"fmt"
	"strings"
)

// MarketCondition is the broad market regime
type MarketCondition string

const (
	MarketBullish MarketCondition = "BULLISH"
	MarketNeutral MarketCondition = "NEUTRAL"
	MarketBearish MarketCondition = "BEARISH"
)

// ParseMarketCondition accepts any casing; empty input means NEUTRAL
func ParseMarketCondition(s string) (MarketCondition, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(MarketNeutral):
		return MarketNeutral, nil
	case string(MarketBullish):
		return MarketBullish, nil
	case string(MarketBearish):
		return MarketBearish, nil
	default:
		return "", fmt.Errorf("unknown market condition %q (want bullish|neutral|bearish)", s)
	}
}

// PriceTiers are three risk-tiered entry prices
// Conservative <= Moderate <= Aggressive always holds
type PriceTiers struct {
	Conservative float64 `json:"conservative"`
	Moderate     float64 `json:"moderate"`
	Aggressive   float64 `json:"aggressive"`
}

// Scale multiplies every tier by m
func (p PriceTiers) Scale(m float64) PriceTiers {
	return PriceTiers{
		Conservative: p.Conservative * m,
		Moderate:     p.Moderate * m,
		Aggressive:   p.Aggressive * m,
	}
}

// Ordered reports whether the tiers are in ascending order
func (p PriceTiers) Ordered() bool {
	return p.Conservative <= p.Moderate && p.Moderate <= p.Aggressive
}

// EntryPriceResult is the entry-price calculator output
type EntryPriceResult struct {
	Symbol                string                         `json:"symbol"`
	CurrentPrice          float64                        `json:"current_price"`
	FairValue             FairBand                       `json:"fair_value"`
	RecommendedEntryPrice PriceTiers                     `json:"recommended_entry_price"`
	RiskAdjustedPrice     PriceTiers                     `json:"risk_adjusted_price"`
	MarketAdjustedPrice   PriceTiers                     `json:"market_adjusted_price"`
	RegimeVariants        map[MarketCondition]PriceTiers `json:"regime_variants"`
	RiskLevel             RiskLevel                      `json:"risk_level"`
	MarketCondition       MarketCondition                `json:"market_condition"`
	IndustryMultiplier    float64                        `json:"industry_multiplier"`
	Confidence            float64                        `json:"confidence"`
	Reasoning             []string                       `json:"reasoning"`
}
