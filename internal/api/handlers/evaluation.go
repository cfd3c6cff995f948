package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/ryu111/stock-health-bot-sub001/internal/brain"
	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/internal/valuation"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
	"github.com/ryu111/stock-health-bot-sub001/pkg/redis"
)

// maxCompareSymbols bounds one comparison request
const maxCompareSymbols = 100

// fetchConcurrency bounds parallel snapshot fetches per comparison
const fetchConcurrency = 8

// CacheObserver counts cache lookups
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	CacheError()
}

type nopCacheObserver struct{}

func (nopCacheObserver) CacheHit()   {}
func (nopCacheObserver) CacheMiss()  {}
func (nopCacheObserver) CacheError() {}

// EvaluationHandler serves single and comparative evaluations
// ⭐ SSOT: 평가 API 핸들러는 이 구조체에서만
type EvaluationHandler struct {
	pipeline *brain.Pipeline
	provider contracts.SnapshotProvider
	repo     contracts.EvaluationRepository
	cache    *redis.Cache
	cacheTTL time.Duration
	cacheObs CacheObserver
	logger   *logger.Logger
}

// NewEvaluationHandler creates a new evaluation handler
// provider may be nil when every request carries its own snapshot.
func NewEvaluationHandler(
	pipeline *brain.Pipeline,
	provider contracts.SnapshotProvider,
	repo contracts.EvaluationRepository,
	cache *redis.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *EvaluationHandler {
	if log == nil {
		log = logger.Nop()
	}
	if cacheTTL <= 0 {
		cacheTTL = redis.TTLMedium
	}
	return &EvaluationHandler{
		pipeline: pipeline,
		provider: provider,
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		cacheObs: nopCacheObserver{},
		logger:   log,
	}
}

// SetCacheObserver installs o for cache hit/miss accounting
func (h *EvaluationHandler) SetCacheObserver(o CacheObserver) {
	if o == nil {
		o = nopCacheObserver{}
	}
	h.cacheObs = o
}

// EvaluateRequest is the body of POST /api/evaluate
type EvaluateRequest struct {
	Symbol          string                      `json:"symbol"`
	Snapshot        *contracts.Snapshot         `json:"snapshot,omitempty"`
	MarketCondition string                      `json:"market_condition,omitempty"`
	Industry        string                      `json:"industry,omitempty"`
	Methods         []contracts.MethodName      `json:"methods,omitempty"`
	Assumptions     valuation.Assumptions       `json:"assumptions,omitempty"`
	Portfolio       *contracts.PortfolioContext `json:"portfolio,omitempty"`
}

// CompareRequest is the body of POST /api/compare
type CompareRequest struct {
	Symbols   []string                       `json:"symbols"`
	Industry  string                         `json:"industry,omitempty"`
	Snapshots map[string]*contracts.Snapshot `json:"snapshots,omitempty"`
}

// Evaluate runs the full pipeline for one symbol
// POST /api/evaluate
func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EvaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" && req.Snapshot != nil {
		req.Symbol = req.Snapshot.Symbol
	}
	if req.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	market, err := contracts.ParseMarketCondition(req.MarketCondition)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var methods []valuation.Method
	if len(req.Methods) > 0 {
		methods, err = valuation.MethodsByName(req.Methods)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	// Only provider-backed default requests are cacheable
	cacheable := req.Snapshot == nil && len(req.Methods) == 0 && req.Portfolio == nil &&
		req.Assumptions == (valuation.Assumptions{})
	cacheKey := redis.EvaluationKey(
		strings.ToUpper(req.Symbol), string(market),
		scoreweights.NormalizeIndustry(req.Industry), h.weightsHash(),
	)

	if cacheable {
		var cached contracts.Evaluation
		if h.cacheGet(ctx, cacheKey, &cached) {
			w.Header().Set("X-Cache", "HIT")
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	snapshot := req.Snapshot
	if snapshot == nil {
		snapshot, err = h.fetch(ctx, req.Symbol)
		if err != nil {
			h.respondFetchError(w, req.Symbol, err)
			return
		}
		if strings.EqualFold(snapshot.Symbol, req.Symbol) {
			req.Symbol = snapshot.Symbol
		}
	}

	eval, err := h.pipeline.Evaluate(ctx, brain.EvaluateRequest{
		Symbol:          req.Symbol,
		Snapshot:        snapshot,
		MarketCondition: market,
		Industry:        req.Industry,
		Methods:         methods,
		Assumptions:     req.Assumptions,
		Portfolio:       req.Portfolio,
	})
	if err != nil {
		h.logger.WithError(err).WithSymbol(req.Symbol).Error("Evaluation failed")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.persist(ctx, eval)
	if cacheable {
		h.cacheSet(ctx, cacheKey, eval)
	}

	respondJSON(w, http.StatusOK, eval)
}

// Compare builds comparative health reports
// POST /api/compare
func (h *EvaluationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CompareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	symbols := dedupe(req.Symbols)
	if len(symbols) == 0 {
		respondError(w, http.StatusBadRequest, "symbols are required")
		return
	}
	if len(symbols) > maxCompareSymbols {
		respondError(w, http.StatusBadRequest, "too many symbols")
		return
	}

	cacheable := len(req.Snapshots) == 0
	cacheKey := redis.ComparisonKey(scoreweights.NormalizeIndustry(req.Industry), h.weightsHash(), symbols)
	if cacheable {
		var cached contracts.BatchEvaluation
		if h.cacheGet(ctx, cacheKey, &cached) {
			w.Header().Set("X-Cache", "HIT")
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	snapshots, err := h.collect(ctx, symbols, req.Snapshots)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch snapshots for comparison")
		respondError(w, http.StatusBadGateway, "failed to fetch snapshots")
		return
	}

	batch, err := h.pipeline.EvaluateMany(ctx, symbols, snapshots, req.Industry)
	if err != nil {
		h.logger.WithError(err).Error("Comparison failed")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveBatch(ctx, batch); err != nil {
			h.logger.WithError(err).WithField("batch_id", batch.ID).Warn("Failed to persist comparison")
		}
	}
	if cacheable {
		h.cacheSet(ctx, cacheKey, batch)
	}

	respondJSON(w, http.StatusOK, batch)
}

// GetEvaluation returns a stored evaluation
// GET /api/evaluations/{id}
func (h *EvaluationHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "evaluation store not configured")
		return
	}

	id := mux.Vars(r)["id"]
	eval, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, contracts.ErrEvaluationNotFound) {
		respondError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to get evaluation")
		respondError(w, http.StatusInternalServerError, "failed to retrieve evaluation")
		return
	}

	respondJSON(w, http.StatusOK, eval)
}

// ListEvaluations returns stored evaluations, newest first
// GET /api/evaluations?symbol=2330&limit=20
func (h *EvaluationHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "evaluation store not configured")
		return
	}

	filter := contracts.EvaluationFilter{Symbol: r.URL.Query().Get("symbol")}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list evaluations")
		respondError(w, http.StatusInternalServerError, "failed to list evaluations")
		return
	}
	if list == nil {
		list = []*contracts.Evaluation{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": list,
		"count":       len(list),
	})
}

func (h *EvaluationHandler) fetch(ctx context.Context, symbol string) (*contracts.Snapshot, error) {
	if h.provider == nil {
		return nil, errNoProvider
	}
	return h.provider.Snapshot(ctx, symbol)
}

var errNoProvider = errors.New("no snapshot provider configured; include a snapshot in the request")

func (h *EvaluationHandler) respondFetchError(w http.ResponseWriter, symbol string, err error) {
	switch {
	case errors.Is(err, errNoProvider):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrSnapshotNotFound):
		respondError(w, http.StatusNotFound, "snapshot not found for "+symbol)
	default:
		h.logger.WithError(err).WithSymbol(symbol).Error("Failed to fetch snapshot")
		respondError(w, http.StatusBadGateway, "failed to fetch snapshot")
	}
}

// collect merges inline snapshots with provider lookups
// Symbols the provider does not know are left out; the pipeline reports them as skipped.
func (h *EvaluationHandler) collect(ctx context.Context, symbols []string, inline map[string]*contracts.Snapshot) (map[string]*contracts.Snapshot, error) {
	out := make(map[string]*contracts.Snapshot, len(symbols))
	var missing []string
	for _, symbol := range symbols {
		if s, ok := inline[symbol]; ok && s != nil {
			out[symbol] = s
			continue
		}
		missing = append(missing, symbol)
	}
	if len(missing) == 0 || h.provider == nil {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, symbol := range missing {
		symbol := symbol // per-iteration copy for the goroutine (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			s, err := h.provider.Snapshot(gctx, symbol)
			if errors.Is(err, contracts.ErrSnapshotNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			// Keep the caller's spelling so the pipeline can match it
			cp := *s
			cp.Symbol = symbol
			mu.Lock()
			out[symbol] = &cp
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *EvaluationHandler) persist(ctx context.Context, eval *contracts.Evaluation) {
	if h.repo == nil {
		return
	}
	if err := h.repo.Save(ctx, eval); err != nil {
		h.logger.WithError(err).WithField("evaluation_id", eval.ID).Warn("Failed to persist evaluation")
	}
}

func (h *EvaluationHandler) weightsHash() string {
	if w := h.pipeline.Weights(); w != nil {
		return w.Hash()
	}
	return ""
}

func (h *EvaluationHandler) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if h.cache == nil || !h.cache.Enabled() {
		return false
	}
	found, err := h.cache.Get(ctx, key, dest)
	switch {
	case err != nil:
		h.cacheObs.CacheError()
		h.logger.WithError(err).WithField("key", key).Warn("Cache lookup failed")
		return false
	case found:
		h.cacheObs.CacheHit()
		return true
	default:
		h.cacheObs.CacheMiss()
		return false
	}
}

func (h *EvaluationHandler) cacheSet(ctx context.Context, key string, value interface{}) {
	if h.cache == nil || !h.cache.Enabled() {
		return
	}
	if err := h.cache.Set(ctx, key, value, h.cacheTTL); err != nil {
		h.cacheObs.CacheError()
		h.logger.WithError(err).WithField("key", key).Warn("Cache store failed")
	}
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
