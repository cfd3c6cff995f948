package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

const namespace = "healthbot"

// Registry holds every Prometheus collector of the service
// It satisfies brain.Observer.
type Registry struct {
	reg *prometheus.Registry

	StageDuration    *prometheus.HistogramVec
	Evaluations      *prometheus.CounterVec
	InsufficientData prometheus.Counter
	HealthScore      prometheus.Histogram
	MethodConfidence *prometheus.HistogramVec
	CacheRequests    *prometheus.CounterVec
	JobRuns          *prometheus.CounterVec
}

// New creates a registry with the Go and process collectors attached
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each evaluation stage in seconds",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"stage"},
		),

		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Completed evaluations by recommended action and valuation signal",
			},
			[]string{"action", "signal"},
		),

		InsufficientData: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insufficient_data_total",
				Help:      "Evaluations without a composite fair value",
			},
		),

		HealthScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "health_score",
				Help:      "Distribution of overall health scores",
				Buckets:   prometheus.LinearBuckets(10, 10, 9),
			},
		),

		MethodConfidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "valuation_method_confidence",
				Help:      "Confidence reported by each valuation method",
				Buckets:   []float64{0, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"method"},
		),

		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Evaluation cache lookups by result (hit|miss|error)",
			},
			[]string{"result"},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.StageDuration,
		r.Evaluations,
		r.InsufficientData,
		r.HealthScore,
		r.MethodConfidence,
		r.CacheRequests,
		r.JobRuns,
	)
	return r
}

// ObserveStage records one stage duration
func (r *Registry) ObserveStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveEvaluation records the outcome of a finished evaluation
func (r *Registry) ObserveEvaluation(e *contracts.Evaluation) {
	if e == nil {
		return
	}
	if e.Recommendation != nil && e.Valuation != nil {
		r.Evaluations.WithLabelValues(string(e.Recommendation.Action), string(e.Valuation.Signal)).Inc()
	}
	if e.InsufficientData {
		r.InsufficientData.Inc()
	}
	if e.Health != nil {
		r.HealthScore.Observe(float64(e.Health.OverallScore))
	}
	if e.Valuation != nil {
		for _, m := range e.Valuation.Methods {
			r.MethodConfidence.WithLabelValues(string(m.Method)).Observe(m.Confidence)
		}
	}
}

// CacheHit, CacheMiss and CacheError count evaluation cache lookups
func (r *Registry) CacheHit()   { r.CacheRequests.WithLabelValues("hit").Inc() }
func (r *Registry) CacheMiss()  { r.CacheRequests.WithLabelValues("miss").Inc() }
func (r *Registry) CacheError() { r.CacheRequests.WithLabelValues("error").Inc() }

// JobRun counts one scheduled job execution
func (r *Registry) JobRun(job string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.JobRuns.WithLabelValues(job, status).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer returns the underlying registry, for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
