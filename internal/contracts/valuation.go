package contracts

// MethodName identifies a valuation method
type MethodName string

const (
	MethodPEBand    MethodName = "PE_BAND"
	MethodDCF       MethodName = "DCF"
	MethodDDM       MethodName = "DDM"
	MethodFundYield MethodName = "FUND_YIELD"
)

// MethodFair is one method's fair-value estimate
// Confidence 0 means "not computable": FairLow/FairMid/FairHigh are then nil.
type MethodFair struct {
	Method      MethodName `json:"method"`
	FairLow     *float64   `json:"fair_low,omitempty"`
	FairMid     *float64   `json:"fair_mid,omitempty"`
	FairHigh    *float64   `json:"fair_high,omitempty"`
	Confidence  float64    `json:"confidence"` // 0.0 ~ 1.0
	Assumptions []string   `json:"assumptions"`
	Limitations []string   `json:"limitations"`
}

// Computable reports whether the method produced a usable band
func (m MethodFair) Computable() bool {
	return m.Confidence > 0 && m.FairLow != nil && m.FairMid != nil && m.FairHigh != nil
}

// FairBand is a (low, mid, high) price estimate
type FairBand struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// Signal classifies price against the composite fair mid
type Signal string

const (
	SignalCheap     Signal = "CHEAP"
	SignalFair      Signal = "FAIR"
	SignalExpensive Signal = "EXPENSIVE"
)

// ValuationResult is the composer's output for one instrument
// ⭐ SSOT: CompositeFair is non-nil iff at least one method has confidence > 0
type ValuationResult struct {
	Symbol            string       `json:"symbol"`
	Price             float64      `json:"price"`
	Methods           []MethodFair `json:"methods"`
	CompositeFair     *FairBand    `json:"composite_fair,omitempty"`
	Signal            Signal       `json:"signal"`
	SuggestedBuyPrice *float64     `json:"suggested_buy_price,omitempty"`
	DataQuality       float64      `json:"data_quality"` // 0.0 ~ 1.0
	Confidence        float64      `json:"confidence"`   // 0.0 ~ 1.0
}

// Method returns the result of a specific method, if it ran
func (v *ValuationResult) Method(name MethodName) (MethodFair, bool) {
	for _, m := range v.Methods {
		if m.Method == name {
			return m, true
		}
	}
	return MethodFair{}, false
}
