package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

func f(v float64) *float64 { return &v }

func assertNotComputable(t *testing.T, r contracts.MethodFair) {
	t.Helper()
	assert.Zero(t, r.Confidence)
	assert.Nil(t, r.FairLow)
	assert.Nil(t, r.FairMid)
	assert.Nil(t, r.FairHigh)
	assert.NotEmpty(t, r.Limitations)
}

func TestPEBand_Estimate(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		wantBand [3]float64
		wantConf float64
	}{
		{
			name:     "supplied band with TTM EPS",
			in:       Input{EPS: f(30), PEBand: &PERange{Low: 15, High: 25}, PEBandSupplied: true},
			wantBand: [3]float64{450, 600, 750},
			wantConf: 0.7,
		},
		{
			name: "forward EPS preferred",
			in: Input{
				EPS:            f(30),
				ForwardEPS:     f(36),
				PEBand:         &PERange{Low: 10, High: 20},
				PEBandSupplied: true,
				EPSCAGR:        f(0.12),
			},
			wantBand: [3]float64{360, 540, 720},
			wantConf: 0.95,
		},
		{
			name:     "derived band",
			in:       Input{EPS: f(25), PEBand: &PERange{Low: 16, High: 24}},
			wantBand: [3]float64{400, 500, 600},
			wantConf: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := PEBand{}.Estimate(tt.in)
			require.NoError(t, err)
			require.True(t, r.Computable())
			assert.InDelta(t, tt.wantBand[0], *r.FairLow, 1e-9)
			assert.InDelta(t, tt.wantBand[1], *r.FairMid, 1e-9)
			assert.InDelta(t, tt.wantBand[2], *r.FairHigh, 1e-9)
			assert.InDelta(t, tt.wantConf, r.Confidence, 1e-9)
		})
	}
}

func TestPEBand_NotComputable(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"no EPS", Input{PEBand: &PERange{Low: 15, High: 25}, PEBandSupplied: true}},
		{"negative EPS", Input{EPS: f(-2), PEBand: &PERange{Low: 15, High: 25}}},
		{"no band", Input{EPS: f(30)}},
		{"inverted band", Input{EPS: f(30), PEBand: &PERange{Low: 25, High: 15}}},
		{"zero low", Input{EPS: f(30), PEBand: &PERange{Low: 0, High: 15}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := PEBand{}.Estimate(tt.in)
			require.NoError(t, err)
			assertNotComputable(t, r)
		})
	}
}

func TestDCF_Estimate(t *testing.T) {
	in := Input{
		FCFPerShare:    f(17.5),
		GrowthRate:     0.15,
		DiscountRate:   0.10,
		TerminalGrowth: 0.02,
	}

	r, err := DCF{}.Estimate(in)
	require.NoError(t, err)
	require.True(t, r.Computable())

	mid := presentValue(17.5, 0.15, 0.10, 0.02, DCFProjectionYears)
	assert.InDelta(t, 573.3, mid, 1.0)
	assert.InDelta(t, mid, *r.FairMid, 1e-9)
	assert.InDelta(t, mid*0.8, *r.FairLow, 1e-9)
	assert.InDelta(t, mid*1.2, *r.FairHigh, 1e-9)
	assert.InDelta(t, 0.75, r.Confidence, 1e-9, "approximated FCF earns no bonus")

	in.FCFReported = true
	r, err = DCF{}.Estimate(in)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, r.Confidence, 1e-9)
}

func TestDCF_NotComputable(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"discount equals terminal", Input{FCFPerShare: f(10), FCFReported: true, GrowthRate: 0.05, DiscountRate: 0.03, TerminalGrowth: 0.03}},
		{"discount below terminal", Input{FCFPerShare: f(10), FCFReported: true, GrowthRate: 0.05, DiscountRate: 0.02, TerminalGrowth: 0.03}},
		{"no FCF", Input{GrowthRate: 0.05, DiscountRate: 0.10, TerminalGrowth: 0.02}},
		{"negative FCF", Input{FCFPerShare: f(-1), GrowthRate: 0.05, DiscountRate: 0.10, TerminalGrowth: 0.02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DCF{}.Estimate(tt.in)
			require.NoError(t, err)
			assertNotComputable(t, r)
		})
	}
}

func TestDDM_Estimate(t *testing.T) {
	r, err := DDM{}.Estimate(Input{
		Price:           100,
		DividendYield:   f(0.04),
		DividendGrowth:  0.03,
		DDMDiscountRate: 0.08,
	})
	require.NoError(t, err)
	require.True(t, r.Computable())

	assert.InDelta(t, 4*1.02/0.06, *r.FairLow, 1e-9)
	assert.InDelta(t, 4*1.03/0.05, *r.FairMid, 1e-9)
	assert.InDelta(t, 4*1.04/0.04, *r.FairHigh, 1e-9)
	assert.InDelta(t, 0.8, r.Confidence, 1e-9)
}

func TestDDM_UpperBoundCapped(t *testing.T) {
	r, err := DDM{}.Estimate(Input{
		Price:           100,
		DividendYield:   f(0.03),
		DividendGrowth:  0.07,
		DDMDiscountRate: 0.08,
	})
	require.NoError(t, err)
	require.True(t, r.Computable())

	assert.Equal(t, *r.FairMid, *r.FairHigh)
	assert.Less(t, *r.FairLow, *r.FairMid)
	assert.NotEmpty(t, r.Limitations)
	assert.InDelta(t, 0.75, r.Confidence, 1e-9, "growth above 6% earns no bonus")
}

func TestDDM_NotComputable(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"zero yield", Input{Price: 100, DividendYield: f(0), DividendGrowth: 0.03, DDMDiscountRate: 0.08}},
		{"no yield", Input{Price: 100, DividendGrowth: 0.03, DDMDiscountRate: 0.08}},
		{"growth at discount", Input{Price: 100, DividendYield: f(0.02), DividendGrowth: 0.08, DDMDiscountRate: 0.08}},
		{"no price", Input{DividendYield: f(0.02), DividendGrowth: 0.03, DDMDiscountRate: 0.08}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DDM{}.Estimate(tt.in)
			require.NoError(t, err)
			assertNotComputable(t, r)
		})
	}
}

func TestFundYield_Estimate(t *testing.T) {
	r, err := FundYield{}.Estimate(Input{
		Price:         30,
		DividendYield: f(0.08),
		TargetYields:  YieldBand{Low: 0.07, Mid: 0.08, High: 0.09},
	})
	require.NoError(t, err)
	require.True(t, r.Computable())

	// higher target yield ⇒ lower fair price
	assert.Less(t, *r.FairHigh, *r.FairMid)
	assert.Less(t, *r.FairMid, *r.FairLow)
	assert.Greater(t, *r.FairHigh, 0.0)
	assert.InDelta(t, 30, *r.FairMid, 1e-9)
	assert.InDelta(t, 2.4/0.09, *r.FairHigh, 1e-9)
	assert.InDelta(t, 2.4/0.07, *r.FairLow, 1e-9)
	assert.InDelta(t, 0.75, r.Confidence, 1e-9)
}

func TestFundYield_ConfidenceBonuses(t *testing.T) {
	r, err := FundYield{}.Estimate(Input{
		Price:         30,
		DividendYield: f(0.06),
		ExpenseRatio:  f(0.003),
		TrackingError: f(0.005),
		TargetYields:  DefaultYieldBand(),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.95, r.Confidence, 1e-9)
}

func TestFundYield_NotComputable(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"zero yield", Input{Price: 30, DividendYield: f(0), TargetYields: DefaultYieldBand()}},
		{"unordered band", Input{Price: 30, DividendYield: f(0.05), TargetYields: YieldBand{Low: 0.08, Mid: 0.06, High: 0.07}}},
		{"zero band", Input{Price: 30, DividendYield: f(0.05)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FundYield{}.Estimate(tt.in)
			require.NoError(t, err)
			assertNotComputable(t, r)
		})
	}
}

func TestNewInput_Derivations(t *testing.T) {
	s := &contracts.Snapshot{
		Symbol:        "2330",
		Price:         500,
		Volume:        1e6,
		MarketCap:     5e12,
		PERatio:       f(20),
		DividendYield: f(0.02),
		ROE:           f(0.25),
	}

	in := NewInput(s, Assumptions{})

	require.NotNil(t, in.EPS)
	assert.InDelta(t, 25, *in.EPS, 1e-9, "EPS backed out of price / P/E")
	require.NotNil(t, in.FCFPerShare)
	assert.InDelta(t, 17.5, *in.FCFPerShare, 1e-9)
	assert.False(t, in.FCFReported)

	require.NotNil(t, in.PEBand)
	assert.InDelta(t, 16, in.PEBand.Low, 1e-9)
	assert.InDelta(t, 24, in.PEBand.High, 1e-9)
	assert.False(t, in.PEBandSupplied)
	assert.Nil(t, in.EPSCAGR)

	// ROE × (1 − yield × P/E) = 0.25 × 0.6, capped at 15%
	assert.InDelta(t, 0.15, in.GrowthRate, 1e-9)
	assert.Equal(t, contracts.MarketEquity, in.Category)
	assert.Equal(t, DefaultDiscountRate, in.DiscountRate)
	assert.Equal(t, DefaultMarginOfSafety, in.MarginOfSafety)
}

func TestNewInput_AssumptionsWin(t *testing.T) {
	s := &contracts.Snapshot{
		Symbol:         "AAPL",
		Price:          180,
		EPS:            f(6),
		PERatio:        f(30),
		EarningsGrowth: f(0.08),
		FCFPerShare:    f(7),
	}

	in := NewInput(s, Assumptions{
		GrowthRate: f(0.04),
		PEBand:     &PERange{Low: 20, High: 28},
	})

	assert.InDelta(t, 6, *in.EPS, 1e-9)
	assert.InDelta(t, 7, *in.FCFPerShare, 1e-9)
	assert.True(t, in.FCFReported)
	assert.True(t, in.PEBandSupplied)
	assert.InDelta(t, 0.04, in.GrowthRate, 1e-9)
	require.NotNil(t, in.EPSCAGR)
	assert.InDelta(t, 0.08, *in.EPSCAGR, 1e-9)
}

func TestDefaultMethods(t *testing.T) {
	names := func(ms []Method) []contracts.MethodName {
		out := make([]contracts.MethodName, len(ms))
		for i, m := range ms {
			out[i] = m.Name()
		}
		return out
	}

	assert.Equal(t,
		[]contracts.MethodName{contracts.MethodPEBand, contracts.MethodDCF, contracts.MethodDDM},
		names(DefaultMethods(contracts.MarketEquity)))
	assert.Equal(t,
		[]contracts.MethodName{contracts.MethodFundYield, contracts.MethodDDM},
		names(DefaultMethods(contracts.MarketFund)))

	_, err := MethodByName("GRAHAM")
	assert.Error(t, err)

	ms, err := MethodsByName([]contracts.MethodName{contracts.MethodDCF, contracts.MethodFundYield})
	require.NoError(t, err)
	assert.Equal(t, []contracts.MethodName{contracts.MethodDCF, contracts.MethodFundYield}, names(ms))
}
