package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ryu111/stock-health-bot-sub001/internal/api/handlers"
	"github.com/ryu111/stock-health-bot-sub001/pkg/database"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
	"github.com/ryu111/stock-health-bot-sub001/pkg/redis"
)

// DatabaseChecker reports database health for /health
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// CacheChecker reports cache health for /health
type CacheChecker interface {
	Status(ctx context.Context) *redis.Status
}

// Routes holds everything the router dispatches to
// Nil Metrics, RateLimit, Database or Cache disable that feature.
type Routes struct {
	Evaluations *handlers.EvaluationHandler
	Weights     *handlers.WeightsHandler
	Metrics     http.Handler
	RateLimit   *RateLimiter
	Database    DatabaseChecker
	Cache       CacheChecker
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(routes.Database, routes.Cache)).Methods("GET")
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	if routes.RateLimit != nil {
		api.Use(routes.RateLimit.Middleware())
	}

	// Evaluation endpoints
	api.HandleFunc("/evaluate", routes.Evaluations.Evaluate).Methods("POST")
	api.HandleFunc("/compare", routes.Evaluations.Compare).Methods("POST")
	api.HandleFunc("/evaluations", routes.Evaluations.ListEvaluations).Methods("GET")
	api.HandleFunc("/evaluations/{id}", routes.Evaluations.GetEvaluation).Methods("GET")

	// Weight endpoints
	api.HandleFunc("/weights", routes.Weights.GetWeights).Methods("GET")
	api.HandleFunc("/weights", routes.Weights.PutWeights).Methods("PUT")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
// A failing database answers 503; a failing cache only marks the service degraded.
func healthCheckHandler(db DatabaseChecker, cache CacheChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "stock-health-bot",
		}
		status := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if cache != nil {
			cs := cache.Status(ctx)
			body["cache"] = cs
			if !cs.Healthy {
				body["status"] = "degraded"
			}
		}

		if db != nil {
			if dbStatus, err := db.HealthCheck(ctx); err != nil {
				body["status"] = "degraded"
				body["database"] = map[string]interface{}{"healthy": false, "error": err.Error()}
				status = http.StatusServiceUnavailable
			} else {
				body["database"] = dbStatus
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
