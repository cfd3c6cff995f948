package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ryu111/stock-health-bot-sub001/internal/api"
	"github.com/ryu111/stock-health-bot-sub001/internal/api/handlers"
	"github.com/ryu111/stock-health-bot-sub001/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                    - Health check
  POST /api/evaluate              - Evaluate one symbol
  POST /api/compare               - Rank several symbols
  GET  /api/evaluations           - Stored evaluations (?symbol=&limit=)
  GET  /api/evaluations/{id}      - One stored evaluation
  GET  /api/weights               - Score weights (?industry=)
  PUT  /api/weights               - Replace score weights (YAML or JSON)
  GET  /metrics                   - Prometheus metrics

Example:
  go run ./cmd/healthbot api
  go run ./cmd/healthbot api --port 8080 --with-worker`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	apiWithWorker bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default $PORT)")
	apiCmd.Flags().BoolVar(&apiWithWorker, "with-worker", false, "also run the scheduled jobs in this process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{store: true, redis: true})
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	evalHandler := handlers.NewEvaluationHandler(
		a.pipeline,
		a.provider,
		a.repo,
		redis.NewCache(a.redis, "healthbot"),
		a.cfg.Redis.CacheTTL,
		a.log,
	)
	evalHandler.SetCacheObserver(a.metrics)

	routes := api.Routes{
		Evaluations: evalHandler,
		Weights:     handlers.NewWeightsHandler(a.weights, a.log),
		RateLimit: api.NewRateLimiter(
			a.cfg.API.RateLimit,
			a.cfg.API.RateBurst,
			redis.NewRateLimiter(a.redis, "healthbot"),
			a.log,
		),
	}
	if a.db != nil {
		routes.Database = a.db
	}
	if a.redis.Enabled() {
		routes.Cache = a.redis
	}
	if a.cfg.MetricsEnabled {
		routes.Metrics = a.metrics.Handler()
	}

	if apiWithWorker {
		sched, err := newScheduler(a, false)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(a.cfg, a.log, api.NewRouter(routes, a.log))
	a.log.WithField("port", a.cfg.Port).Info("API server ready")

	return server.Run(ctx)
}
