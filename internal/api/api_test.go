package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryu111/stock-health-bot-sub001/internal/api/handlers"
	"github.com/ryu111/stock-health-bot-sub001/internal/brain"
	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/metrics"
	"github.com/ryu111/stock-health-bot-sub001/internal/s0_data/snapshots"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/internal/store"
	"github.com/ryu111/stock-health-bot-sub001/pkg/database"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
	"github.com/ryu111/stock-health-bot-sub001/pkg/redis"
)

func fixtures() []contracts.Snapshot {
	updated := time.Now().Add(-time.Hour)
	return []contracts.Snapshot{
		{
			Symbol:        "2330",
			Price:         500,
			Volume:        1e6,
			MarketCap:     5e12,
			PERatio:       contracts.Float(20),
			DividendYield: contracts.Float(0.02),
			ROE:           contracts.Float(0.25),
			LastUpdated:   updated,
		},
		{
			Symbol:     "WEAK",
			Price:      5,
			Volatility: contracts.Float(80),
			Beta:       contracts.Float(2.5),
		},
	}
}

type testEnv struct {
	router   http.Handler
	repo     *store.MemoryRepository
	weights  *scoreweights.Config
	registry *metrics.Registry
}

func newTestEnv(t *testing.T, provider contracts.SnapshotProvider, limiter *RateLimiter) *testEnv {
	t.Helper()

	weights := scoreweights.New(nil)
	pipeline := brain.NewDefaultPipeline(weights, logger.Nop())
	registry := metrics.New()
	pipeline.SetObserver(registry)

	repo := store.NewMemoryRepository()
	evalHandler := handlers.NewEvaluationHandler(pipeline, provider, repo, nil, 0, logger.Nop())
	evalHandler.SetCacheObserver(registry)

	router := NewRouter(Routes{
		Evaluations: evalHandler,
		Weights:     handlers.NewWeightsHandler(weights, logger.Nop()),
		Metrics:     registry.Handler(),
		RateLimit:   limiter,
	}, logger.Nop())

	return &testEnv{router: router, repo: repo, weights: weights, registry: registry}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "ok", body["status"])
}

type failingDB struct{}

func (failingDB) HealthCheck(context.Context) (*database.HealthStatus, error) {
	return nil, errors.New("connection refused")
}

func TestHealth_DatabaseDown(t *testing.T) {
	router := NewRouter(Routes{
		Evaluations: handlers.NewEvaluationHandler(brain.NewDefaultPipeline(nil, nil), nil, nil, nil, 0, nil),
		Weights:     handlers.NewWeightsHandler(scoreweights.New(nil), nil),
		Database:    failingDB{},
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

type fixedCache redis.Status

func (c fixedCache) Status(context.Context) *redis.Status {
	st := redis.Status(c)
	return &st
}

func TestHealth_Cache(t *testing.T) {
	tests := []struct {
		name   string
		cache  fixedCache
		status string
	}{
		{"disabled", fixedCache{Healthy: true}, "ok"},
		{"reachable", fixedCache{Enabled: true, Healthy: true, Addr: "localhost:6379"}, "ok"},
		{"unreachable", fixedCache{Enabled: true, Error: "dial tcp: refused"}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(Routes{
				Evaluations: handlers.NewEvaluationHandler(brain.NewDefaultPipeline(nil, nil), nil, nil, nil, 0, nil),
				Weights:     handlers.NewWeightsHandler(scoreweights.New(nil), nil),
				Cache:       tt.cache,
			}, nil)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			// the cache is optional, so it never fails the probe
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[map[string]interface{}](t, rec)
			assert.Equal(t, tt.status, body["status"])
			assert.Contains(t, body, "cache")
		})
	}
}

func TestEvaluate_FromProvider(t *testing.T) {
	env := newTestEnv(t, snapshots.NewStaticProvider(fixtures(), nil), nil)

	rec := env.do(t, http.MethodPost, "/api/evaluate", `{"symbol":"2330","market_condition":"bullish"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	eval := decode[contracts.Evaluation](t, rec)
	assert.Equal(t, "2330", eval.Symbol)
	assert.Equal(t, contracts.MarketBullish, eval.MarketCondition)
	require.NotNil(t, eval.Valuation.CompositeFair)
	require.NotNil(t, eval.EntryPrice)
	assert.False(t, eval.InsufficientData)
	assert.Equal(t, env.weights.Hash(), eval.WeightsHash)

	// Stored and retrievable
	rec = env.do(t, http.MethodGet, "/api/evaluations/"+eval.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, eval.ID, decode[contracts.Evaluation](t, rec).ID)

	rec = env.do(t, http.MethodGet, "/api/evaluations?symbol=2330&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string]interface{}](t, rec)
	assert.Equal(t, 1.0, list["count"])

	// The pipeline observer feeds /metrics
	rec = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthbot_evaluations_total")
}

func TestEvaluate_Assumptions(t *testing.T) {
	env := newTestEnv(t, snapshots.NewStaticProvider(fixtures(), nil), nil)

	// EPS is backed out of price/PE: 500 / 20 = 25
	body := `{"symbol":"2330","methods":["PE_BAND"],"assumptions":{"pe_band":{"low":10,"high":12},"margin_of_safety":0.5}}`
	rec := env.do(t, http.MethodPost, "/api/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	eval := decode[contracts.Evaluation](t, rec)
	require.Len(t, eval.Valuation.Methods, 1)
	pe := eval.Valuation.Methods[0]
	assert.Equal(t, contracts.MethodPEBand, pe.Method)
	require.NotNil(t, pe.FairMid)
	assert.InDelta(t, 25*11, *pe.FairMid, 1e-6)
	assert.InDelta(t, 250, *pe.FairLow, 1e-6)
	assert.InDelta(t, 300, *pe.FairHigh, 1e-6)
	assert.Greater(t, pe.Confidence, 0.6, "a supplied band earns the bonus")

	require.NotNil(t, eval.Valuation.SuggestedBuyPrice)
	assert.InDelta(t, eval.Valuation.CompositeFair.Mid*0.5, *eval.Valuation.SuggestedBuyPrice, 1e-6)
}

func TestEvaluate_InlineSnapshot(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	body, err := json.Marshal(map[string]interface{}{
		"snapshot": fixtures()[0],
		"methods":  []string{"PE_BAND"},
		"industry": "semis",
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/evaluate", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	eval := decode[contracts.Evaluation](t, rec)
	assert.Equal(t, "2330", eval.Symbol)
	assert.Equal(t, scoreweights.IndustrySemiconductor, eval.Industry)
	require.Len(t, eval.Valuation.Methods, 1)
}

type brokenProvider struct{}

func (brokenProvider) Snapshot(context.Context, string) (*contracts.Snapshot, error) {
	return nil, errors.New("upstream timeout")
}

func (brokenProvider) Symbols(context.Context) ([]string, error) { return nil, nil }

func TestEvaluate_Errors(t *testing.T) {
	static := snapshots.NewStaticProvider(fixtures(), nil)

	tests := []struct {
		name     string
		provider contracts.SnapshotProvider
		body     string
		want     int
	}{
		{"malformed body", static, `{"symbol":`, http.StatusBadRequest},
		{"missing symbol", static, `{}`, http.StatusBadRequest},
		{"bad market", static, `{"symbol":"2330","market_condition":"sideways"}`, http.StatusBadRequest},
		{"unknown method", static, `{"symbol":"2330","methods":["MAGIC"]}`, http.StatusBadRequest},
		{"unknown symbol", static, `{"symbol":"NOPE"}`, http.StatusNotFound},
		{"no provider", nil, `{"symbol":"2330"}`, http.StatusBadRequest},
		{"provider failure", brokenProvider{}, `{"symbol":"2330"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.provider, nil)
			rec := env.do(t, http.MethodPost, "/api/evaluate", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestGetEvaluation_NotFound(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/evaluations/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/evaluations?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompare(t *testing.T) {
	env := newTestEnv(t, snapshots.NewStaticProvider(fixtures(), nil), nil)

	rec := env.do(t, http.MethodPost, "/api/compare", `{"symbols":["WEAK","2330","MISSING","2330"],"industry":"tech"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	batch := decode[contracts.BatchEvaluation](t, rec)
	assert.Equal(t, []string{"MISSING"}, batch.Skipped)
	assert.Equal(t, scoreweights.IndustryTechnology, batch.Industry)
	require.Len(t, batch.Reports, 2)
	require.NotNil(t, batch.Comparison)
	require.Len(t, batch.Comparison.Ranking, 2)
	assert.Equal(t, "2330", batch.Comparison.Ranking[0].Symbol)
	assert.Equal(t, "WEAK", batch.Comparison.Ranking[1].Symbol)

	require.Len(t, env.repo.Batches(), 1)
}

func TestCompare_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider contracts.SnapshotProvider
		body     string
		want     int
	}{
		{"no symbols", nil, `{"symbols":[]}`, http.StatusBadRequest},
		{"blank symbols", nil, `{"symbols":[" ",""]}`, http.StatusBadRequest},
		{"provider failure", brokenProvider{}, `{"symbols":["2330"]}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.provider, nil)
			rec := env.do(t, http.MethodPost, "/api/compare", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestWeights(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/weights?industry=Semis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[handlers.WeightsResponse](t, rec)
	assert.Equal(t, scoreweights.IndustrySemiconductor, got.Industry)
	assert.True(t, got.Known)

	total := 0.0
	for _, v := range got.Effective {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-6)

	before := env.weights.Hash()
	rec = env.do(t, http.MethodPut, "/api/weights", "weights:\n  valuation: 0.5\n  growth: 0.5\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	put := decode[handlers.WeightsResponse](t, rec)
	assert.Greater(t, put.Version, got.Version)
	assert.NotEqual(t, before, env.weights.Hash())
	assert.InDelta(t, 0.5, env.weights.Weights()[contracts.CategoryGrowth], 1e-6)

	// JSON documents are accepted too
	rec = env.do(t, http.MethodPut, "/api/weights", `{"weights":{"valuation":1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestWeights_Rejects(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	before := env.weights.Hash()

	rec := env.do(t, http.MethodPut, "/api/weights", "weights:\n  vibes: 0.5\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "weights.vibes", body["field"])

	rec = env.do(t, http.MethodPut, "/api/weights", "colour: blue\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, before, env.weights.Hash())
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, NewRateLimiter(1, 1, nil, nil))

	first := env.do(t, http.MethodGet, "/api/weights", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := env.do(t, http.MethodGet, "/api/weights", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// Health and metrics are outside /api and never throttled
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	env := newTestEnv(t, nil, NewRateLimiter(0, 0, nil, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/weights", "").Code)
	}
}

func TestRateLimit_EvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(10, 10, nil, nil)
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < maxTrackedClients; i++ {
		l.local(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	require.Len(t, l.clients, maxTrackedClients)

	now = now.Add(2 * clientIdleTTL)
	l.local("fresh")
	assert.Len(t, l.clients, 1)
}
