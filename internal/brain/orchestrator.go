package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/entryprice"
	"github.com/ryu111/stock-health-bot-sub001/internal/health"
	"github.com/ryu111/stock-health-bot-sub001/internal/recommendation"
	"github.com/ryu111/stock-health-bot-sub001/internal/s0_data/quality"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/internal/valuation"
	"github.com/ryu111/stock-health-bot-sub001/pkg/config"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// Stage names reported to the Observer
const (
	StageQuality        = "quality"
	StageValuation      = "valuation"
	StageHealth         = "health"
	StageRecommendation = "recommendation"
	StageEntryPrice     = "entry_price"
)

// Observer receives per-stage timings and finished evaluations
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveEvaluation(e *contracts.Evaluation)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration)     {}
func (nopObserver) ObserveEvaluation(*contracts.Evaluation) {}

// EvaluateRequest is the input of one single-symbol evaluation
type EvaluateRequest struct {
	Symbol          string
	Snapshot        *contracts.Snapshot
	MarketCondition contracts.MarketCondition
	Industry        string                // optional, overrides Snapshot.Industry
	Methods         []valuation.Method    // nil = defaults for the market category
	Assumptions     valuation.Assumptions // zero value = defaults
	Portfolio       *contracts.PortfolioContext
	RequiredFields  []string // nil = quality.DefaultRequiredFields()
}

// Pipeline coordinates quality → valuation → health → recommendation → entry price
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Pipeline struct {
	validator   *quality.Validator
	composer    *valuation.Composer
	generator   *health.Generator
	synthesizer *recommendation.Synthesizer
	entry       *entryprice.Calculator
	weights     *scoreweights.Config

	// applied when a request leaves MarginOfSafety unset
	marginOfSafety *float64

	observer Observer
	now      func() time.Time
	logger   *logger.Logger
}

// NewPipeline creates a pipeline from its stage components
func NewPipeline(
	validator *quality.Validator,
	composer *valuation.Composer,
	generator *health.Generator,
	synthesizer *recommendation.Synthesizer,
	entry *entryprice.Calculator,
	weights *scoreweights.Config,
	log *logger.Logger,
) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		validator:   validator,
		composer:    composer,
		generator:   generator,
		synthesizer: synthesizer,
		entry:       entry,
		weights:     weights,
		observer:    nopObserver{},
		now:         time.Now,
		logger:      log,
	}
}

// NewConfiguredPipeline wires every stage from the analysis settings
func NewConfiguredPipeline(cfg config.AnalysisConfig, weights *scoreweights.Config, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if weights == nil {
		weights = scoreweights.New(nil)
	}

	qc := quality.DefaultConfig()
	if cfg.DataMaxAge > 0 {
		qc.MaxAge = cfg.DataMaxAge
	}
	validator := quality.NewValidator(log, quality.WithConfig(qc))

	cc := valuation.DefaultComposerConfig()
	if cfg.CheapThreshold > 0 {
		cc.CheapThreshold = cfg.CheapThreshold
	}
	if cfg.ExpensiveThreshold > 0 {
		cc.ExpensiveThreshold = cfg.ExpensiveThreshold
	}

	p := NewPipeline(
		validator,
		valuation.NewComposer(validator, cc, log),
		health.NewGenerator(health.NewCalculator(log), weights, log),
		recommendation.NewSynthesizer(recommendation.DefaultPortfolioConfig(), log),
		entryprice.NewCalculator(log),
		weights,
		log,
	)
	if cfg.MarginOfSafety > 0 {
		mos := cfg.MarginOfSafety
		p.marginOfSafety = &mos
	}
	return p
}

// NewDefaultPipeline wires every stage with its default configuration
func NewDefaultPipeline(weights *scoreweights.Config, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if weights == nil {
		weights = scoreweights.New(nil)
	}
	validator := quality.NewValidator(log)
	return NewPipeline(
		validator,
		valuation.NewComposer(validator, valuation.DefaultComposerConfig(), log),
		health.NewGenerator(health.NewCalculator(log), weights, log),
		recommendation.NewSynthesizer(recommendation.DefaultPortfolioConfig(), log),
		entryprice.NewCalculator(log),
		weights,
		log,
	)
}

// SetObserver installs o; nil restores the no-op observer
func (p *Pipeline) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	p.observer = o
}

// SetClock overrides the time source used for CreatedAt
func (p *Pipeline) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Weights returns the shared weight configuration
func (p *Pipeline) Weights() *scoreweights.Config {
	return p.weights
}

// Evaluate runs the full chain for one symbol
// A missing composite fair value is not an error: InsufficientData is set instead.
func (p *Pipeline) Evaluate(ctx context.Context, req EvaluateRequest) (*contracts.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot, err := resolveSnapshot(req.Symbol, req.Snapshot)
	if err != nil {
		return nil, err
	}

	market := req.MarketCondition
	if market == "" {
		market = contracts.MarketNeutral
	}
	required := req.RequiredFields
	if required == nil {
		required = quality.DefaultRequiredFields()
	}

	eval := &contracts.Evaluation{
		ID:              uuid.New().String(),
		Symbol:          snapshot.Symbol,
		MarketCondition: market,
		CreatedAt:       p.now(),
	}
	if p.weights != nil {
		eval.WeightsHash = p.weights.Hash()
	}

	log := p.logger.WithFields(map[string]interface{}{
		"evaluation_id": eval.ID,
		"symbol":        eval.Symbol,
	})

	// 1. Data quality
	start := time.Now()
	eval.Quality = p.validator.Validate(snapshot, required)
	p.observer.ObserveStage(StageQuality, time.Since(start))
	if !eval.Quality.IsValid {
		log.WithFields(map[string]interface{}{
			"score": eval.Quality.Quality.OverallScore,
			"level": eval.Quality.Quality.Level,
		}).Warn("data quality below threshold, continuing with reduced confidence")
	}

	// 2. Valuation
	start = time.Now()
	assumptions := req.Assumptions
	if assumptions.MarginOfSafety == nil {
		assumptions.MarginOfSafety = p.marginOfSafety
	}
	eval.Valuation = p.composer.Compose(snapshot, assumptions, req.Methods)
	p.observer.ObserveStage(StageValuation, time.Since(start))

	// 3. Health report
	start = time.Now()
	eval.Health = p.generator.Generate(snapshot, req.Industry, eval.Quality.Score())
	eval.Industry = eval.Health.Industry
	p.observer.ObserveStage(StageHealth, time.Since(start))

	// 4. Recommendation
	start = time.Now()
	scores := health.AnalysisScores(eval.Health)
	eval.Recommendation = p.synthesizer.Synthesize(eval.Health, eval.Valuation, scores, req.Portfolio)
	p.observer.ObserveStage(StageRecommendation, time.Since(start))

	// 5. Entry price
	start = time.Now()
	entry, err := p.entry.Calculate(entryprice.Request{
		Valuation:   eval.Valuation,
		HealthScore: float64(eval.Health.OverallScore),
		Market:      market,
		Industry:    eval.Industry,
	})
	p.observer.ObserveStage(StageEntryPrice, time.Since(start))
	switch {
	case errors.Is(err, entryprice.ErrNoCompositeFairValue):
		eval.InsufficientData = true
		log.WithError(err).Warn("insufficient data for entry price")
	case err != nil:
		return nil, fmt.Errorf("entry price: %w", err)
	default:
		eval.EntryPrice = entry
	}

	p.observer.ObserveEvaluation(eval)

	log.WithFields(map[string]interface{}{
		"action":            eval.Recommendation.Action,
		"health":            eval.Health.OverallScore,
		"signal":            eval.Valuation.Signal,
		"insufficient_data": eval.InsufficientData,
	}).Info("evaluation completed")

	return eval, nil
}

// EvaluateMany builds comparative health reports for symbols
// Symbols without a snapshot are skipped with a warning.
func (p *Pipeline) EvaluateMany(ctx context.Context, symbols []string, snapshots map[string]*contracts.Snapshot, industry string) (*contracts.BatchEvaluation, error) {
	batch := &contracts.BatchEvaluation{
		ID:        uuid.New().String(),
		Industry:  scoreweights.NormalizeIndustry(industry),
		Skipped:   []string{},
		CreatedAt: p.now(),
	}

	subjects := make([]health.Subject, 0, len(symbols))
	for _, symbol := range symbols {
		s, ok := snapshots[symbol]
		if !ok || s == nil {
			p.logger.WithSymbol(symbol).Warn("no snapshot, skipping symbol")
			batch.Skipped = append(batch.Skipped, symbol)
			continue
		}
		snapshot, err := resolveSnapshot(symbol, s)
		if err != nil {
			p.logger.WithSymbol(symbol).WithError(err).Warn("unusable snapshot, skipping symbol")
			batch.Skipped = append(batch.Skipped, symbol)
			continue
		}
		q := p.validator.Validate(snapshot, quality.DefaultRequiredFields())
		subjects = append(subjects, health.Subject{Snapshot: snapshot, DataQuality: q.Score()})
	}

	reports, cmp, err := p.generator.Compare(ctx, subjects, industry)
	if err != nil {
		return nil, fmt.Errorf("evaluate many: %w", err)
	}
	batch.Reports = reports
	batch.Comparison = cmp

	p.logger.WithFields(map[string]interface{}{
		"batch_id":  batch.ID,
		"evaluated": len(reports),
		"skipped":   len(batch.Skipped),
		"industry":  batch.Industry,
	}).Info("batch evaluation completed")

	return batch, nil
}

// EvaluateSymbol fetches the snapshot from provider, then evaluates it
func (p *Pipeline) EvaluateSymbol(ctx context.Context, provider contracts.SnapshotProvider, req EvaluateRequest) (*contracts.Evaluation, error) {
	s, err := provider.Snapshot(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot %s: %w", req.Symbol, err)
	}
	// Providers may normalise symbol case
	if s != nil && strings.EqualFold(s.Symbol, req.Symbol) {
		req.Symbol = s.Symbol
	}
	req.Snapshot = s
	return p.Evaluate(ctx, req)
}

// resolveSnapshot reconciles the requested symbol with the snapshot's own
// The caller's snapshot is copied, never modified.
func resolveSnapshot(symbol string, s *contracts.Snapshot) (*contracts.Snapshot, error) {
	if s == nil {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrSnapshotNotFound)
	}
	switch {
	case symbol == "" || symbol == s.Symbol:
		return s, nil
	case s.Symbol == "":
		cp := *s
		cp.Symbol = symbol
		return &cp, nil
	default:
		return nil, fmt.Errorf("symbol mismatch: requested %s, snapshot is %s", symbol, s.Symbol)
	}
}
