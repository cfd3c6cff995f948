package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// Required-field names accepted besides metric keys
const (
	FieldSymbol      = "symbol"
	FieldPrice       = "price"
	FieldLastUpdated = "last_updated"
)

// DefaultRequiredFields is used when the caller declares none
func DefaultRequiredFields() []string {
	return []string{FieldSymbol, FieldPrice, FieldLastUpdated}
}

// Config holds validator thresholds
type Config struct {
	MaxAge             time.Duration `yaml:"max_age"`             // 24h
	MinValidScore      float64       `yaml:"min_valid_score"`     // 60
	AnomalyVolatility  float64       `yaml:"anomaly_volatility"`  // 25 (%)
	AnomalyPenalty     float64       `yaml:"anomaly_penalty"`     // 0.2
	CompletenessWeight float64       `yaml:"completeness_weight"` // 0.35
	TimelinessWeight   float64       `yaml:"timeliness_weight"`   // 0.15
	ConsistencyWeight  float64       `yaml:"consistency_weight"`  // 0.25
	ValidityWeight     float64       `yaml:"validity_weight"`     // 0.25
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		MaxAge:             24 * time.Hour,
		MinValidScore:      60,
		AnomalyVolatility:  25,
		AnomalyPenalty:     0.2,
		CompletenessWeight: 0.35,
		TimelinessWeight:   0.15,
		ConsistencyWeight:  0.25,
		ValidityWeight:     0.25,
	}
}

// Validator scores a snapshot's completeness, timeliness, consistency and validity
// ⭐ SSOT: S0 데이터 품질 검증
// Never fails: degraded input lowers the score instead.
type Validator struct {
	config Config
	now    func() time.Time
	logger *logger.Logger
}

// Option customises a Validator
type Option func(*Validator)

// WithClock injects the time source used for timeliness
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithConfig overrides the default thresholds
func WithConfig(cfg Config) Option {
	return func(v *Validator) { v.config = cfg }
}

// NewValidator creates a new Validator
func NewValidator(log *logger.Logger, opts ...Option) *Validator {
	if log == nil {
		log = logger.Nop()
	}
	v := &Validator{
		config: DefaultConfig(),
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.config.MaxAge <= 0 {
		v.config.MaxAge = 24 * time.Hour
	}
	return v
}

// Validate checks s against required (DefaultRequiredFields when empty)
func (v *Validator) Validate(s *contracts.Snapshot, required []string) *contracts.ValidationResult {
	if len(required) == 0 {
		required = DefaultRequiredFields()
	}

	result := &contracts.ValidationResult{
		Errors:      []contracts.ValidationIssue{},
		Warnings:    []contracts.ValidationIssue{},
		Suggestions: []string{},
	}

	if s == nil {
		s = &contracts.Snapshot{}
	}

	q := contracts.DataQuality{
		Completeness: v.completeness(s, required, result),
		Timeliness:   v.timeliness(s, result),
		Validity:     v.validity(s, result),
		Consistency:  v.consistency(s, result),
		Accuracy:     v.accuracy(s, result),
	}

	overall := q.Completeness*v.config.CompletenessWeight +
		q.Timeliness*v.config.TimelinessWeight +
		q.Consistency*v.config.ConsistencyWeight +
		q.Validity*v.config.ValidityWeight
	q.OverallScore = clamp(overall*100, 0, 100)
	q.Level = Level(q.OverallScore)

	result.Quality = q
	result.IsValid = !result.HasBlockingErrors() && q.OverallScore >= v.config.MinValidScore
	result.Suggestions = append(result.Suggestions, suggestions(q)...)

	v.logger.WithFields(map[string]interface{}{
		"symbol":   s.Symbol,
		"score":    q.OverallScore,
		"level":    q.Level,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
	}).Debug("snapshot validated")

	return result
}

// completeness = present required fields / required fields
func (v *Validator) completeness(s *contracts.Snapshot, required []string, r *contracts.ValidationResult) float64 {
	present := 0
	for _, field := range required {
		if fieldPresent(s, field) {
			present++
			continue
		}

		severity := contracts.SeverityError
		if field == FieldSymbol || field == FieldPrice {
			severity = contracts.SeverityCritical
		}
		r.Errors = append(r.Errors, contracts.ValidationIssue{
			Field:    field,
			Message:  fmt.Sprintf("required field %s is missing", field),
			Severity: severity,
		})
	}
	return float64(present) / float64(len(required))
}

// timeliness = max(0, 1 - age/maxAge); no timestamp ⇒ 0
func (v *Validator) timeliness(s *contracts.Snapshot, r *contracts.ValidationResult) float64 {
	if s.LastUpdated.IsZero() {
		r.Warnings = append(r.Warnings, contracts.ValidationIssue{
			Field:    FieldLastUpdated,
			Message:  "no update timestamp",
			Severity: contracts.SeverityWarning,
		})
		return 0
	}

	age := v.now().Sub(s.LastUpdated)
	if age < 0 {
		age = 0
	}
	score := math.Max(0, 1-age.Hours()/v.config.MaxAge.Hours())
	if score == 0 {
		r.Warnings = append(r.Warnings, contracts.ValidationIssue{
			Field:    FieldLastUpdated,
			Message:  fmt.Sprintf("data is stale (%.0fh old)", age.Hours()),
			Severity: contracts.SeverityWarning,
		})
	}
	return score
}

// validity penalises out-of-range price, yield, P/E and P/B
func (v *Validator) validity(s *contracts.Snapshot, r *contracts.ValidationResult) float64 {
	score := 1.0

	if s.Price <= 0 || math.IsNaN(s.Price) {
		score -= 0.5
		if !hasIssue(r.Errors, FieldPrice) {
			r.Errors = append(r.Errors, contracts.ValidationIssue{
				Field:    FieldPrice,
				Message:  fmt.Sprintf("price must be positive, got %v", s.Price),
				Severity: contracts.SeverityError,
			})
		}
	}

	checks := []struct {
		key      contracts.MetricKey
		min, max float64
		penalty  float64
	}{
		{contracts.MetricDividendYield, 0, 0.20, 0.15},
		{contracts.MetricPERatio, 0, 200, 0.1},
		{contracts.MetricPBRatio, 0, 50, 0.1},
	}
	for _, c := range checks {
		val, ok := s.Metric(c.key)
		if !ok {
			continue
		}
		if val < c.min || val > c.max {
			score -= c.penalty
			r.Warnings = append(r.Warnings, contracts.ValidationIssue{
				Field:    string(c.key),
				Message:  fmt.Sprintf("%s %.4g outside [%g, %g]", c.key, val, c.min, c.max),
				Severity: contracts.SeverityWarning,
			})
		}
	}

	return clamp(score, 0, 1)
}

// consistency cross-checks margin ordering and liquidity ratios
func (v *Validator) consistency(s *contracts.Snapshot, r *contracts.ValidationResult) float64 {
	score := 1.0

	gross, hasGross := s.Metric(contracts.MetricGrossMargin)
	op, hasOp := s.Metric(contracts.MetricOperatingMargin)
	net, hasNet := s.Metric(contracts.MetricNetMargin)
	if (hasGross && hasOp && gross < op) || (hasOp && hasNet && op < net) {
		score -= 0.3
		r.Warnings = append(r.Warnings, contracts.ValidationIssue{
			Field:    string(contracts.MetricGrossMargin),
			Message:  "margins should satisfy gross >= operating >= net",
			Severity: contracts.SeverityWarning,
		})
	}

	quick, hasQuick := s.Metric(contracts.MetricQuickRatio)
	current, hasCurrent := s.Metric(contracts.MetricCurrentRatio)
	if hasQuick && hasCurrent && quick > current*1.2 {
		score -= 0.2
		r.Warnings = append(r.Warnings, contracts.ValidationIssue{
			Field:    string(contracts.MetricQuickRatio),
			Message:  fmt.Sprintf("quick ratio %.2f exceeds current ratio %.2f", quick, current),
			Severity: contracts.SeverityWarning,
		})
	}

	return clamp(score, 0, 1)
}

// accuracy flags statistical anomalies
func (v *Validator) accuracy(s *contracts.Snapshot, r *contracts.ValidationResult) float64 {
	score := 1.0

	if vol, ok := s.Metric(contracts.MetricVolatility); ok && vol > v.config.AnomalyVolatility {
		score -= v.config.AnomalyPenalty
		r.Warnings = append(r.Warnings, contracts.ValidationIssue{
			Field:    string(contracts.MetricVolatility),
			Message:  fmt.Sprintf("unusually high volatility %.1f%%", vol),
			Severity: contracts.SeverityWarning,
		})
	}

	if s.Volume == 0 {
		score -= v.config.AnomalyPenalty
		r.Warnings = append(r.Warnings, contracts.ValidationIssue{
			Field:    string(contracts.MetricVolume),
			Message:  "zero trading volume",
			Severity: contracts.SeverityWarning,
		})
	}

	return clamp(score, 0, 1)
}

// Level maps a 0~100 score to the 6-step quality level
func Level(score float64) contracts.QualityLevel {
	switch {
	case score >= 90:
		return contracts.QualityExcellent
	case score >= 80:
		return contracts.QualityGood
	case score >= 70:
		return contracts.QualityFair
	case score >= 60:
		return contracts.QualityPoor
	case score >= 50:
		return contracts.QualityVeryPoor
	default:
		return contracts.QualityUnreliable
	}
}

func suggestions(q contracts.DataQuality) []string {
	var out []string
	if q.Completeness < 1 {
		out = append(out, "supply the missing required fields")
	}
	if q.Timeliness < 0.5 {
		out = append(out, "refresh the market data")
	}
	if q.Consistency < 1 {
		out = append(out, "cross-check financial statement ratios")
	}
	if q.Validity < 1 {
		out = append(out, "review out-of-range metric values")
	}
	return out
}

// fieldPresent resolves symbol, price, last_updated and any metric key
func fieldPresent(s *contracts.Snapshot, field string) bool {
	switch normalizeField(field) {
	case FieldSymbol:
		return strings.TrimSpace(s.Symbol) != ""
	case FieldPrice:
		return s.Price > 0
	case FieldLastUpdated:
		return !s.LastUpdated.IsZero()
	case "name":
		return s.Name != ""
	case "industry":
		return s.Industry != ""
	case "market_category":
		return s.MarketCategory != ""
	default:
		_, ok := s.Metric(contracts.MetricKey(normalizeField(field)))
		return ok
	}
}

// normalizeField accepts camelCase aliases such as lastUpdated or peRatio
func normalizeField(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasIssue(issues []contracts.ValidationIssue, field string) bool {
	for _, i := range issues {
		if i.Field == field {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
