package recommendation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

func TestCompositeScore(t *testing.T) {
	scores := contracts.AnalysisScores{Technical: 50, Fundamental: 68.2, Risk: 35.9}

	assert.InDelta(t, 62.47, CompositeScore(64, scores, contracts.SignalFair), 1e-9)
	assert.InDelta(t, 62.47*1.2, CompositeScore(64, scores, contracts.SignalCheap), 1e-9)
	assert.InDelta(t, 62.47*0.8, CompositeScore(64, scores, contracts.SignalExpensive), 1e-9)
}

func TestDecideAction(t *testing.T) {
	tests := []struct {
		name       string
		composite  float64
		health     float64
		signal     contracts.Signal
		want       contracts.Action
		wantCapped bool
	}{
		{"strong buy", 90, 85, contracts.SignalCheap, contracts.ActionStrongBuy, false},
		{"strong buy needs cheap", 90, 85, contracts.SignalFair, contracts.ActionBuy, false},
		{"strong buy needs health", 90, 75, contracts.SignalCheap, contracts.ActionBuy, false},
		{"expensive never buys", 80, 85, contracts.SignalExpensive, contracts.ActionHold, false},
		{"buy", 76, 70, contracts.SignalFair, contracts.ActionBuy, false},
		{"hold", 65, 70, contracts.SignalFair, contracts.ActionHold, false},
		{"sell", 45, 70, contracts.SignalFair, contracts.ActionSell, false},
		{"strong sell", 30, 70, contracts.SignalFair, contracts.ActionStrongSell, false},
		{"weak health caps buy at hold", 80, 50, contracts.SignalFair, contracts.ActionHold, true},
		{"weak health caps hold at sell", 65, 50, contracts.SignalFair, contracts.ActionSell, true},
		{"weak health keeps strong sell", 30, 50, contracts.SignalFair, contracts.ActionStrongSell, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, capped := decideAction(tt.composite, tt.health, tt.signal)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCapped, capped)
		})
	}
}

func TestBuckets(t *testing.T) {
	assert.Equal(t, contracts.RiskLow, riskLevel(90, 20))
	assert.Equal(t, contracts.RiskMedium, riskLevel(64, 35.9))
	assert.Equal(t, contracts.RiskHigh, riskLevel(40, 70))

	assert.Equal(t, contracts.HorizonLong, timeHorizon(85, 80))
	assert.Equal(t, contracts.HorizonMedium, timeHorizon(64, 68.2))
	assert.Equal(t, contracts.HorizonShort, timeHorizon(40, 50))

	assert.Equal(t, contracts.PositionLarge, positionSize(0.85, contracts.RiskLow))
	assert.Equal(t, contracts.PositionMedium, positionSize(0.85, contracts.RiskMedium))
	assert.Equal(t, contracts.PositionMedium, positionSize(0.65, contracts.RiskLow))
	assert.Equal(t, contracts.PositionSmall, positionSize(0.85, contracts.RiskHigh))
	assert.Equal(t, contracts.PositionSmall, positionSize(0.5, contracts.RiskLow))
}

func TestSynthesize(t *testing.T) {
	s := NewSynthesizer(DefaultPortfolioConfig(), logger.Nop())

	report := &contracts.HealthReport{
		Symbol:       "2330",
		OverallScore: 64,
		OverallGrade: contracts.GradeBelowAverage,
		Weaknesses:   []contracts.Category{contracts.CategoryGrowth},
		Confidence:   0.65,
		DataQuality:  0.9,
	}
	val := &contracts.ValuationResult{
		Symbol:        "2330",
		Price:         500,
		CompositeFair: &contracts.FairBand{Low: 432, Mid: 540, High: 648},
		Signal:        contracts.SignalFair,
		Confidence:    0.675,
	}
	scores := contracts.AnalysisScores{Technical: 50, Fundamental: 68.2, Risk: 35.9}

	rec := s.Synthesize(report, val, scores, nil)

	assert.Equal(t, "2330", rec.Symbol)
	assert.Equal(t, contracts.ActionHold, rec.Action)
	assert.InDelta(t, 62.47, rec.CompositeScore, 1e-9)
	assert.Equal(t, contracts.RiskMedium, rec.RiskLevel)
	assert.Equal(t, contracts.HorizonMedium, rec.TimeHorizon)
	assert.Equal(t, contracts.PositionMedium, rec.PositionSize)
	assert.InDelta(t, 0.4*0.675+0.3*0.65+0.3*0.9, rec.Confidence, 1e-9)

	require.NotNil(t, rec.TargetPrice)
	require.NotNil(t, rec.StopLoss)
	assert.InDelta(t, 540, *rec.TargetPrice, 1e-9)
	assert.InDelta(t, 432*0.90, *rec.StopLoss, 1e-9)
	assert.Nil(t, rec.Rebalance)

	require.NotEmpty(t, rec.Reasoning)
	assert.True(t, strings.HasPrefix(rec.Reasoning[0], "valuation signal FAIR"))
}

func TestSynthesize_TargetByAction(t *testing.T) {
	s := NewSynthesizer(DefaultPortfolioConfig(), nil)
	band := &contracts.FairBand{Low: 80, Mid: 100, High: 120}

	strong := s.Synthesize(
		&contracts.HealthReport{OverallScore: 90, Confidence: 1, DataQuality: 1},
		&contracts.ValuationResult{CompositeFair: band, Signal: contracts.SignalCheap, Confidence: 1},
		contracts.AnalysisScores{Technical: 90, Fundamental: 90, Risk: 10},
		nil,
	)
	assert.Equal(t, contracts.ActionStrongBuy, strong.Action)
	assert.InDelta(t, 120, *strong.TargetPrice, 1e-9)
	assert.Equal(t, contracts.RiskLow, strong.RiskLevel)
	assert.InDelta(t, 80*0.95, *strong.StopLoss, 1e-9)
	assert.Equal(t, contracts.PositionLarge, strong.PositionSize)

	weak := s.Synthesize(
		&contracts.HealthReport{OverallScore: 35},
		&contracts.ValuationResult{CompositeFair: band, Signal: contracts.SignalExpensive},
		contracts.AnalysisScores{Technical: 30, Fundamental: 30, Risk: 80},
		nil,
	)
	assert.Equal(t, contracts.ActionStrongSell, weak.Action)
	assert.InDelta(t, 80, *weak.TargetPrice, 1e-9)
	assert.InDelta(t, 80*0.85, *weak.StopLoss, 1e-9)
	assert.Equal(t, contracts.PositionSmall, weak.PositionSize)
}

func TestSynthesize_NoComposite(t *testing.T) {
	s := NewSynthesizer(DefaultPortfolioConfig(), nil)

	rec := s.Synthesize(
		&contracts.HealthReport{Symbol: "X", OverallScore: 70},
		&contracts.ValuationResult{Signal: contracts.SignalFair},
		contracts.AnalysisScores{Technical: 50, Fundamental: 50, Risk: 50},
		nil,
	)

	assert.Nil(t, rec.TargetPrice)
	assert.Nil(t, rec.StopLoss)
	assert.Contains(t, rec.Reasoning[0], "no composite fair value")
}

func TestSynthesize_NilInputs(t *testing.T) {
	s := NewSynthesizer(DefaultPortfolioConfig(), nil)

	rec := s.Synthesize(nil, nil, contracts.AnalysisScores{}, nil)
	require.NotNil(t, rec)
	assert.Equal(t, contracts.ActionStrongSell, rec.Action)
	assert.Zero(t, rec.Confidence)
}

func TestRebalance(t *testing.T) {
	s := NewSynthesizer(DefaultPortfolioConfig(), nil)
	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name       string
		health     float64
		signal     contracts.Signal
		ctx        contracts.PortfolioContext
		wantTarget float64
		wantAction contracts.RebalanceAction
	}{
		{"strong and cheap", 85, contracts.SignalCheap, contracts.PortfolioContext{CurrentAllocation: 0.05}, 0.132, contracts.RebalanceIncrease},
		{"weak and expensive", 50, contracts.SignalExpensive, contracts.PortfolioContext{CurrentAllocation: 0.10}, 0.072, contracts.RebalanceDecrease},
		{"inside deadband", 70, contracts.SignalFair, contracts.PortfolioContext{CurrentAllocation: 0.09}, 0.10, contracts.RebalanceMaintain},
		{"clamped high", 85, contracts.SignalFair, contracts.PortfolioContext{CurrentAllocation: 0.25, TargetAllocation: ptr(0.30)}, 0.25, contracts.RebalanceMaintain},
		{"clamped low", 50, contracts.SignalFair, contracts.PortfolioContext{CurrentAllocation: 0.20, TargetAllocation: ptr(0.04)}, 0.05, contracts.RebalanceDecrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := s.Rebalance(tt.health, tt.signal, tt.ctx)
			assert.InDelta(t, tt.wantTarget, r.TargetAllocation, 1e-9)
			assert.InDelta(t, tt.wantTarget-tt.ctx.CurrentAllocation, r.Delta, 1e-9)
			assert.Equal(t, tt.wantAction, r.Action)
			assert.NotEmpty(t, r.Reasoning)
		})
	}
}

func TestSynthesize_WithPortfolio(t *testing.T) {
	s := NewSynthesizer(PortfolioConfig{}, nil)

	rec := s.Synthesize(
		&contracts.HealthReport{OverallScore: 82},
		&contracts.ValuationResult{Signal: contracts.SignalFair},
		contracts.AnalysisScores{Technical: 60, Fundamental: 70, Risk: 30},
		&contracts.PortfolioContext{CurrentAllocation: 0},
	)

	require.NotNil(t, rec.Rebalance)
	assert.Equal(t, contracts.RebalanceIncrease, rec.Rebalance.Action)
	assert.InDelta(t, 0.12, rec.Rebalance.TargetAllocation, 1e-9)
}
