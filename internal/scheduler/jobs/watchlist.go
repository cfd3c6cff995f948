package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ryu111/stock-health-bot-sub001/internal/brain"
	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// WatchlistJobName is the scheduler key of this job
const WatchlistJobName = "watchlist_evaluation"

// WatchlistJob evaluates the watchlist and stores the results
// ⭐ SSOT: 관심종목 정기 평가는 이 Job에서만
type WatchlistJob struct {
	pipeline    *brain.Pipeline
	provider    contracts.SnapshotProvider
	repo        contracts.EvaluationRepository
	schedule    string
	symbols     []string
	industry    string
	concurrency int
	logger      *logger.Logger
}

// WatchlistConfig configures a WatchlistJob
type WatchlistConfig struct {
	Schedule    string
	Symbols     []string // empty = every symbol the provider lists
	Industry    string   // peer group for the comparison
	Concurrency int      // parallel snapshot fetches, minimum 1
}

// NewWatchlistJob creates a new watchlist job
func NewWatchlistJob(
	pipeline *brain.Pipeline,
	provider contracts.SnapshotProvider,
	repo contracts.EvaluationRepository,
	cfg WatchlistConfig,
	log *logger.Logger,
) *WatchlistJob {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &WatchlistJob{
		pipeline:    pipeline,
		provider:    provider,
		repo:        repo,
		schedule:    cfg.Schedule,
		symbols:     cfg.Symbols,
		industry:    cfg.Industry,
		concurrency: cfg.Concurrency,
		logger:      log.WithJob(WatchlistJobName),
	}
}

// Name returns the job name
func (j *WatchlistJob) Name() string {
	return WatchlistJobName
}

// Schedule returns the configured cron schedule
func (j *WatchlistJob) Schedule() string {
	return j.schedule
}

// Run fetches snapshots, evaluates each symbol, then stores a comparison
// Symbols that fail on their own are logged and left out; the run fails
// only when nothing could be evaluated.
func (j *WatchlistJob) Run(ctx context.Context) error {
	symbols, err := j.watchlist(ctx)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		j.logger.Warn("Watchlist is empty, nothing to evaluate")
		return nil
	}

	snapshots, err := j.fetch(ctx, symbols)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no snapshots available for %d symbols", len(symbols))
	}

	saved := 0
	for _, symbol := range symbols {
		s, ok := snapshots[symbol]
		if !ok {
			continue
		}
		eval, err := j.pipeline.Evaluate(ctx, brain.EvaluateRequest{
			Symbol:   symbol,
			Snapshot: s,
			Industry: j.industry,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			j.logger.WithSymbol(symbol).WithError(err).Warn("Evaluation failed")
			continue
		}
		if err := j.repo.Save(ctx, eval); err != nil {
			return fmt.Errorf("save evaluation %s: %w", symbol, err)
		}
		saved++
	}

	batch, err := j.pipeline.EvaluateMany(ctx, symbols, snapshots, j.industry)
	if err != nil {
		return fmt.Errorf("compare watchlist: %w", err)
	}
	if err := j.repo.SaveBatch(ctx, batch); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"batch_id":  batch.ID,
		"symbols":   len(symbols),
		"evaluated": saved,
		"skipped":   len(batch.Skipped),
	}).Info("Watchlist evaluation completed")

	return nil
}

func (j *WatchlistJob) watchlist(ctx context.Context) ([]string, error) {
	if len(j.symbols) > 0 {
		return j.symbols, nil
	}
	symbols, err := j.provider.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return symbols, nil
}

// fetch loads snapshots keyed by the watchlist spelling of each symbol
func (j *WatchlistJob) fetch(ctx context.Context, symbols []string) (map[string]*contracts.Snapshot, error) {
	var mu sync.Mutex
	snapshots := make(map[string]*contracts.Snapshot, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, symbol := range symbols {
		symbol := symbol // per-iteration copy for the goroutine (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			s, err := j.provider.Snapshot(gctx, symbol)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log := j.logger.WithSymbol(symbol).WithError(err)
				if errors.Is(err, contracts.ErrSnapshotNotFound) {
					log.Warn("No snapshot for watchlist symbol")
				} else {
					log.Error("Snapshot fetch failed")
				}
				return nil
			}

			// Providers may normalise case
			if s.Symbol != symbol && strings.EqualFold(s.Symbol, symbol) {
				cp := *s
				cp.Symbol = symbol
				s = &cp
			}

			mu.Lock()
			snapshots[symbol] = s
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch snapshots: %w", err)
	}
	return snapshots, nil
}
