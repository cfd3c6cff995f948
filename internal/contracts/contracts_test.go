package contracts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Metric(t *testing.T) {
	s := &Snapshot{
		Symbol:  "2330",
		Price:   500,
		Volume:  0,
		PERatio: Float(20),
		RSI:     Float(math.NaN()),
		Beta:    Float(math.Inf(1)),
	}

	tests := []struct {
		key     MetricKey
		want    float64
		present bool
	}{
		{MetricPrice, 500, true},
		{MetricVolume, 0, false}, // zero volume counts as missing
		{MetricMarketCap, 0, false},
		{MetricPERatio, 20, true},
		{MetricPBRatio, 0, false},
		{MetricRSI, 0, false},
		{MetricBeta, 0, false},
		{MetricKey("made_up"), 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			v, ok := s.Metric(tt.key)
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, v)
		})
	}

	var nilSnap *Snapshot
	_, ok := nilSnap.Metric(MetricPrice)
	assert.False(t, ok)
}

func TestAllMetricKeys_Resolvable(t *testing.T) {
	s := &Snapshot{}
	keys := AllMetricKeys()
	require.Len(t, keys, 27)

	seen := make(map[MetricKey]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
		_, ok := s.Metric(k)
		assert.False(t, ok, "empty snapshot should not report %s", k)
	}
}

func TestValidationResult(t *testing.T) {
	var nilResult *ValidationResult
	assert.Equal(t, 0.0, nilResult.Score())

	r := &ValidationResult{Quality: DataQuality{OverallScore: 85}}
	assert.InDelta(t, 0.85, r.Score(), 1e-9)
	assert.False(t, r.HasBlockingErrors())

	r.Errors = []ValidationIssue{{Field: "price", Severity: SeverityWarning}}
	assert.False(t, r.HasBlockingErrors())

	r.Errors = append(r.Errors, ValidationIssue{Field: "price", Severity: SeverityCritical})
	assert.True(t, r.HasBlockingErrors())
}

func TestParseMarketCondition(t *testing.T) {
	tests := []struct {
		in      string
		want    MarketCondition
		wantErr bool
	}{
		{"", MarketNeutral, false},
		{"bullish", MarketBullish, false},
		{" Bearish ", MarketBearish, false},
		{"NEUTRAL", MarketNeutral, false},
		{"sideways", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMarketCondition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceTiers(t *testing.T) {
	p := PriceTiers{Conservative: 85, Moderate: 90, Aggressive: 95}
	assert.True(t, p.Ordered())

	scaled := p.Scale(1.1)
	assert.InDelta(t, 93.5, scaled.Conservative, 1e-9)
	assert.True(t, scaled.Ordered())

	assert.False(t, PriceTiers{Conservative: 100, Moderate: 90, Aggressive: 95}.Ordered())
}

func TestAction_Rank(t *testing.T) {
	ordered := []Action{ActionStrongSell, ActionSell, ActionHold, ActionBuy, ActionStrongBuy}
	for i, a := range ordered {
		assert.Equal(t, i, a.Rank(), string(a))
	}
	assert.Equal(t, -1, Action("MAYBE").Rank())
}

func TestMethodFair_Computable(t *testing.T) {
	full := MethodFair{FairLow: Float(1), FairMid: Float(2), FairHigh: Float(3), Confidence: 0.5}
	assert.True(t, full.Computable())

	noConfidence := full
	noConfidence.Confidence = 0
	assert.False(t, noConfidence.Computable())

	assert.False(t, MethodFair{Confidence: 0.5}.Computable())
}
