package contracts

import "time"

// Evaluation is the full single-symbol pipeline output
// EntryPrice is nil when InsufficientData is set.
type Evaluation struct {
	ID               string            `json:"id"`
	Symbol           string            `json:"symbol"`
	Industry         string            `json:"industry,omitempty"`
	MarketCondition  MarketCondition   `json:"market_condition"`
	Quality          *ValidationResult `json:"quality"`
	Valuation        *ValuationResult  `json:"valuation"`
	Health           *HealthReport     `json:"health"`
	Recommendation   *Recommendation   `json:"recommendation"`
	EntryPrice       *EntryPriceResult `json:"entry_price,omitempty"`
	InsufficientData bool              `json:"insufficient_data"`
	WeightsHash      string            `json:"weights_hash,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// BatchEvaluation is the comparative pipeline output
type BatchEvaluation struct {
	ID         string          `json:"id"`
	Industry   string          `json:"industry,omitempty"`
	Reports    []*HealthReport `json:"reports"`
	Comparison *Comparison     `json:"comparison"`
	Skipped    []string        `json:"skipped"`
	CreatedAt  time.Time       `json:"created_at"`
}
