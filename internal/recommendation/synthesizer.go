package recommendation

import (
	"fmt"
	"math"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// Composite score weights
const (
	healthWeight      = 0.4
	technicalWeight   = 0.2
	fundamentalWeight = 0.3
	safetyWeight      = 0.1
)

// Action thresholds (composite score)
const (
	strongBuyScore = 85.0
	buyScore       = 75.0
	holdScore      = 60.0
	sellScore      = 40.0

	strongBuyHealth = 80.0
	weakHealth      = 60.0 // below this the action is capped
	cappedHoldScore = 70.0
)

// signalMultiplier scales the composite by the valuation signal
var signalMultiplier = map[contracts.Signal]float64{
	contracts.SignalCheap:     1.2,
	contracts.SignalFair:      1.0,
	contracts.SignalExpensive: 0.8,
}

// stopLossFactor is applied to the composite fair low
var stopLossFactor = map[contracts.RiskLevel]float64{
	contracts.RiskLow:    0.95,
	contracts.RiskMedium: 0.90,
	contracts.RiskHigh:   0.85,
}

// Synthesizer turns a health report and a valuation into one decision
// ⭐ SSOT: 투자 의견 결정 로직은 여기서만
type Synthesizer struct {
	portfolio PortfolioConfig
	logger    *logger.Logger
}

// NewSynthesizer creates a new Synthesizer
func NewSynthesizer(portfolio PortfolioConfig, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synthesizer{
		portfolio: portfolio,
		logger:    log,
	}
}

// Synthesize builds the recommendation; portfolio may be nil
func (s *Synthesizer) Synthesize(
	report *contracts.HealthReport,
	val *contracts.ValuationResult,
	scores contracts.AnalysisScores,
	portfolio *contracts.PortfolioContext,
) *contracts.Recommendation {
	if report == nil {
		report = &contracts.HealthReport{}
	}
	if val == nil {
		val = &contracts.ValuationResult{Signal: contracts.SignalFair}
	}

	health := float64(report.OverallScore)
	signal := val.Signal
	if _, ok := signalMultiplier[signal]; !ok {
		signal = contracts.SignalFair
	}

	composite := CompositeScore(health, scores, signal)
	action, capped := decideAction(composite, health, signal)
	risk := riskLevel(health, scores.Risk)
	confidence := clamp01(0.4*val.Confidence + 0.3*report.Confidence + 0.3*report.DataQuality)

	rec := &contracts.Recommendation{
		Symbol:         report.Symbol,
		Action:         action,
		Confidence:     confidence,
		CompositeScore: composite,
		RiskLevel:      risk,
		TimeHorizon:    timeHorizon(health, scores.Fundamental),
		PositionSize:   positionSize(confidence, risk),
	}
	if rec.Symbol == "" {
		rec.Symbol = val.Symbol
	}

	if band := val.CompositeFair; band != nil {
		target := targetPrice(action, *band)
		stop := band.Low * stopLossFactor[risk]
		rec.TargetPrice = &target
		rec.StopLoss = &stop
	}

	rec.Reasoning = reasoning(report, val, signal, composite, capped)

	if portfolio != nil {
		rec.Rebalance = s.Rebalance(health, signal, *portfolio)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":     rec.Symbol,
		"action":     rec.Action,
		"composite":  composite,
		"risk":       risk,
		"confidence": confidence,
	}).Debug("recommendation synthesized")

	return rec
}

// CompositeScore = (health×.4 + technical×.2 + fundamental×.3 + (100−risk)×.1) × signal multiplier
func CompositeScore(health float64, scores contracts.AnalysisScores, signal contracts.Signal) float64 {
	base := health*healthWeight +
		scores.Technical*technicalWeight +
		scores.Fundamental*fundamentalWeight +
		(100-scores.Risk)*safetyWeight

	m, ok := signalMultiplier[signal]
	if !ok {
		m = 1.0
	}
	return base * m
}

// decideAction applies the thresholds, then the weak-health cap
func decideAction(composite, health float64, signal contracts.Signal) (contracts.Action, bool) {
	var action contracts.Action
	switch {
	case composite >= strongBuyScore && signal == contracts.SignalCheap && health >= strongBuyHealth:
		action = contracts.ActionStrongBuy
	case composite >= buyScore && signal != contracts.SignalExpensive:
		action = contracts.ActionBuy
	case composite >= holdScore:
		action = contracts.ActionHold
	case composite >= sellScore:
		action = contracts.ActionSell
	default:
		action = contracts.ActionStrongSell
	}

	if health >= weakHealth {
		return action, false
	}

	limit := contracts.ActionSell
	if composite >= cappedHoldScore {
		limit = contracts.ActionHold
	}
	if action.Rank() > limit.Rank() {
		return limit, true
	}
	return action, false
}

// riskLevel averages health and the inverted risk score
func riskLevel(health, risk float64) contracts.RiskLevel {
	avg := (health + (100 - risk)) / 2
	switch {
	case avg >= 80:
		return contracts.RiskLow
	case avg >= 60:
		return contracts.RiskMedium
	default:
		return contracts.RiskHigh
	}
}

func timeHorizon(health, fundamental float64) contracts.TimeHorizon {
	avg := (health + fundamental) / 2
	switch {
	case avg >= 80:
		return contracts.HorizonLong
	case avg >= 55:
		return contracts.HorizonMedium
	default:
		return contracts.HorizonShort
	}
}

func positionSize(confidence float64, risk contracts.RiskLevel) contracts.PositionSize {
	switch {
	case confidence >= 0.8 && risk == contracts.RiskLow:
		return contracts.PositionLarge
	case confidence >= 0.6 && risk != contracts.RiskHigh:
		return contracts.PositionMedium
	default:
		return contracts.PositionSmall
	}
}

func targetPrice(action contracts.Action, band contracts.FairBand) float64 {
	switch action {
	case contracts.ActionStrongBuy:
		return band.High
	case contracts.ActionBuy, contracts.ActionHold:
		return band.Mid
	default:
		return band.Low
	}
}

func reasoning(
	report *contracts.HealthReport,
	val *contracts.ValuationResult,
	signal contracts.Signal,
	composite float64,
	capped bool,
) []string {
	lines := []string{}

	if val.CompositeFair != nil {
		lines = append(lines, fmt.Sprintf("valuation signal %s: price %.2f vs fair value %.2f (band %.2f ~ %.2f)",
			signal, val.Price, val.CompositeFair.Mid, val.CompositeFair.Low, val.CompositeFair.High))
	} else {
		lines = append(lines, fmt.Sprintf("valuation signal %s: no composite fair value available", signal))
	}

	lines = append(lines, fmt.Sprintf("health score %d (%s)", report.OverallScore, report.OverallGrade))
	lines = append(lines, fmt.Sprintf("composite score %.1f", composite))

	if len(report.Strengths) > 0 {
		lines = append(lines, fmt.Sprintf("strengths: %v", report.Strengths))
	}
	if len(report.Weaknesses) > 0 {
		lines = append(lines, fmt.Sprintf("weaknesses: %v", report.Weaknesses))
	}
	if len(report.RiskFactors) > 0 {
		lines = append(lines, fmt.Sprintf("risk factors: %v", report.RiskFactors))
	}
	if capped {
		lines = append(lines, "action capped: health score below 60")
	}
	return lines
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
