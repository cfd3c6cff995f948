package valuation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/s0_data/quality"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// ComposerConfig holds the signal thresholds
type ComposerConfig struct {
	CheapThreshold     float64 `yaml:"cheap_threshold"`     // price <= mid × 0.9 ⇒ CHEAP
	ExpensiveThreshold float64 `yaml:"expensive_threshold"` // price >= mid × 1.1 ⇒ EXPENSIVE
}

// DefaultComposerConfig returns the standard thresholds
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{
		CheapThreshold:     0.9,
		ExpensiveThreshold: 1.1,
	}
}

// Composer runs valuation methods and combines them into one fair band
// ⭐ SSOT: multi-method fair value 합성
type Composer struct {
	validator *quality.Validator
	config    ComposerConfig
	logger    *logger.Logger
}

// NewComposer creates a new Composer
func NewComposer(validator *quality.Validator, cfg ComposerConfig, log *logger.Logger) *Composer {
	if log == nil {
		log = logger.Nop()
	}
	if validator == nil {
		validator = quality.NewValidator(log)
	}
	if cfg.CheapThreshold <= 0 || cfg.ExpensiveThreshold <= cfg.CheapThreshold {
		cfg = DefaultComposerConfig()
	}
	return &Composer{
		validator: validator,
		config:    cfg,
		logger:    log,
	}
}

// Compose values s with methods (DefaultMethods for its category when nil)
func (c *Composer) Compose(s *contracts.Snapshot, a Assumptions, methods []Method) *contracts.ValuationResult {
	in := NewInput(s, a)
	if methods == nil {
		methods = DefaultMethods(in.Category)
	}

	// 1. lightweight quality check on price/metadata
	check := c.validator.Validate(s, []string{quality.FieldSymbol, quality.FieldPrice})

	return c.ComposeInput(in, methods, check.Score())
}

// ComposeInput is Compose for an already-built input
func (c *Composer) ComposeInput(in Input, methods []Method, dataQuality float64) *contracts.ValuationResult {
	result := &contracts.ValuationResult{
		Symbol:      in.Symbol,
		Price:       in.Price,
		Methods:     make([]contracts.MethodFair, 0, len(methods)),
		Signal:      contracts.SignalFair,
		DataQuality: dataQuality,
	}

	// 2. every method runs; one failure never aborts the others
	for _, m := range methods {
		result.Methods = append(result.Methods, c.run(m, in))
	}

	// 3. confidence-weighted composite
	result.CompositeFair = composite(result.Methods)

	// 4. signal, 5. suggested buy
	if result.CompositeFair != nil {
		mid := result.CompositeFair.Mid
		result.Signal = c.signal(in.Price, mid)

		buy := math.Max(0, mid*(1-in.MarginOfSafety))
		result.SuggestedBuyPrice = &buy
	}

	// 6. mean of all confidences, zeros included
	if len(result.Methods) > 0 {
		confidences := make([]float64, len(result.Methods))
		for i, m := range result.Methods {
			confidences[i] = m.Confidence
		}
		result.Confidence = stat.Mean(confidences, nil)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":     in.Symbol,
		"methods":    len(result.Methods),
		"signal":     result.Signal,
		"confidence": result.Confidence,
		"composite":  result.CompositeFair != nil,
	}).Debug("valuation composed")

	return result
}

// run executes one method, converting errors and panics into a zero-confidence result
func (c *Composer) run(m Method, in Input) (out contracts.MethodFair) {
	name := m.Name()
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(map[string]interface{}{
				"symbol": in.Symbol,
				"method": name,
				"panic":  fmt.Sprint(r),
			}).Warn("valuation method panicked")
			out = failed(name, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := m.Estimate(in)
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": in.Symbol,
			"method": name,
		}).Warn("valuation method failed")
		return failed(name, err)
	}

	res.Method = name
	if !res.Computable() {
		// confidence 0 ⇔ no fair bounds
		res.Confidence = 0
		res.FairLow, res.FairMid, res.FairHigh = nil, nil, nil
	}
	if res.Assumptions == nil {
		res.Assumptions = []string{}
	}
	if res.Limitations == nil {
		res.Limitations = []string{}
	}
	return res
}

func (c *Composer) signal(price, mid float64) contracts.Signal {
	switch {
	case price <= mid*c.config.CheapThreshold:
		return contracts.SignalCheap
	case price >= mid*c.config.ExpensiveThreshold:
		return contracts.SignalExpensive
	default:
		return contracts.SignalFair
	}
}

// composite is the confidence-weighted mean of each bound over computable methods
// Bounds are ordered per method first: fund-yield reports fairLow > fairHigh.
func composite(methods []contracts.MethodFair) *contracts.FairBand {
	var lows, mids, highs, weights []float64
	for _, m := range methods {
		if !m.Computable() {
			continue
		}
		lows = append(lows, math.Min(*m.FairLow, *m.FairHigh))
		mids = append(mids, *m.FairMid)
		highs = append(highs, math.Max(*m.FairLow, *m.FairHigh))
		weights = append(weights, m.Confidence)
	}
	if len(weights) == 0 {
		return nil
	}

	return &contracts.FairBand{
		Low:  stat.Mean(lows, weights),
		Mid:  stat.Mean(mids, weights),
		High: stat.Mean(highs, weights),
	}
}

func failed(name contracts.MethodName, err error) contracts.MethodFair {
	return notComputable(name, fmt.Sprintf("method failed: %v", err))
}
