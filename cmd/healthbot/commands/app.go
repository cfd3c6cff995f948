package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ryu111/stock-health-bot-sub001/internal/brain"
	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/metrics"
	"github.com/ryu111/stock-health-bot-sub001/internal/s0_data/snapshots"
	"github.com/ryu111/stock-health-bot-sub001/internal/scheduler/jobs"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/internal/store"
	"github.com/ryu111/stock-health-bot-sub001/pkg/config"
	"github.com/ryu111/stock-health-bot-sub001/pkg/database"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
	"github.com/ryu111/stock-health-bot-sub001/pkg/redis"
)

// repository is what the commands need from a store
type repository interface {
	contracts.EvaluationRepository
	jobs.Purger
}

// app holds the wired dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Registry
	weights  *scoreweights.Config
	provider contracts.SnapshotProvider
	pipeline *brain.Pipeline

	// optional, see appOptions
	db    *database.DB
	repo  repository
	redis *redis.Client
}

type appOptions struct {
	store bool // open Postgres, or fall back to memory
	redis bool
	// service logs go to stdout, one-shot commands keep stdout for results
	logTo io.Writer
}

// newApp loads configuration and wires the pipeline
// 1. config → 2. logger → 3. weights → 4. snapshots → 5. pipeline → 6. store → 7. redis
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if weightsFile != "" {
		cfg.WeightsFile = weightsFile
	}
	if snapshotFile != "" {
		cfg.SnapshotFile = snapshotFile
	}
	if snapshotURL != "" {
		cfg.SnapshotURL = snapshotURL
	}

	a := &app{cfg: cfg, metrics: metrics.New()}
	if opts.logTo != nil {
		a.log = logger.NewWithWriter(opts.logTo, cfg.LogLevel)
	} else {
		a.log = logger.New(cfg)
	}

	a.weights, err = loadWeights(cfg.WeightsFile, a.log)
	if err != nil {
		return nil, err
	}

	a.provider, err = snapshots.Open(cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("open snapshots: %w", err)
	}

	a.pipeline = brain.NewConfiguredPipeline(cfg.Analysis, a.weights, a.log)
	a.pipeline.SetObserver(a.metrics)

	if opts.store {
		if err := a.openStore(ctx); err != nil {
			return nil, err
		}
	}

	if opts.redis {
		a.redis, err = redis.New(ctx, cfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	db, err := database.New(ctx, a.cfg)
	if errors.Is(err, database.ErrNotConfigured) {
		a.log.Warn("DATABASE_URL not set, evaluations are kept in memory")
		a.repo = store.NewMemoryRepository()
		return nil
	}
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := store.EnsureSchema(ctx, db.Pool); err != nil {
		db.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}

	a.db = db
	a.repo = store.NewPostgresRepository(db.Pool)
	a.log.Info("Connected to database")
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
}

// loadWeights reads the weight file, or returns the defaults when path is empty
func loadWeights(path string, log *logger.Logger) (*scoreweights.Config, error) {
	if path == "" {
		return scoreweights.New(nil), nil
	}

	w, warnings, err := scoreweights.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load weights %s: %w", path, err)
	}
	for _, warn := range warnings {
		log.WithFields(map[string]interface{}{
			"code": warn.Code,
			"file": path,
		}).Warn(warn.Message)
	}
	return w, nil
}

// oneShot is the option set of commands that print a result and exit
func oneShot(store bool) appOptions {
	return appOptions{store: store, logTo: os.Stderr}
}
