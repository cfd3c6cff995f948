package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// MemoryRepository keeps evaluations in process
// Used when DATABASE_URL is not configured. Stored values are deep copies.
type MemoryRepository struct {
	mu          sync.RWMutex
	evaluations map[string][]byte
	order       []memEntry
	batches     []*contracts.BatchEvaluation
}

type memEntry struct {
	id        string
	symbol    string
	createdAt time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{evaluations: make(map[string][]byte)}
}

// Save stores a copy of e, replacing any evaluation with the same id
func (r *MemoryRepository) Save(ctx context.Context, e *contracts.Evaluation) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.evaluations[e.ID]; !exists {
		r.order = append(r.order, memEntry{id: e.ID, symbol: e.Symbol, createdAt: e.CreatedAt})
	}
	r.evaluations[e.ID] = data
	return nil
}

// SaveBatch appends a comparative run
func (r *MemoryRepository) SaveBatch(ctx context.Context, b *contracts.BatchEvaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
	return nil
}

// Batches returns the stored comparative runs, oldest first
func (r *MemoryRepository) Batches() []*contracts.BatchEvaluation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*contracts.BatchEvaluation(nil), r.batches...)
}

// Get retrieves an evaluation by id
func (r *MemoryRepository) Get(ctx context.Context, id string) (*contracts.Evaluation, error) {
	r.mu.RLock()
	data, ok := r.evaluations[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", id, contracts.ErrEvaluationNotFound)
	}
	return decode(data)
}

// Latest retrieves the newest evaluation for symbol
func (r *MemoryRepository) Latest(ctx context.Context, symbol string) (*contracts.Evaluation, error) {
	list, err := r.List(ctx, contracts.EvaluationFilter{Symbol: symbol, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrEvaluationNotFound)
	}
	return list[0], nil
}

// List returns evaluations newest first
func (r *MemoryRepository) List(ctx context.Context, filter contracts.EvaluationFilter) ([]*contracts.Evaluation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	r.mu.RLock()
	entries := make([]memEntry, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		e := r.order[i]
		if filter.Symbol != "" && e.symbol != filter.Symbol {
			continue
		}
		if e.createdAt.Before(filter.Since) {
			continue
		}
		entries = append(entries, e)
	}
	// Newest first; the later save wins a tie
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].createdAt.After(entries[j].createdAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	payloads := make([][]byte, len(entries))
	for i, e := range entries {
		payloads[i] = r.evaluations[e.id]
	}
	r.mu.RUnlock()

	out := make([]*contracts.Evaluation, 0, len(payloads))
	for _, data := range payloads {
		e, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decode(data []byte) (*contracts.Evaluation, error) {
	var e contracts.Evaluation
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
	}
	return &e, nil
}

// Purge deletes evaluations and batches older than cutoff
func (r *MemoryRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	kept := r.order[:0]
	for _, e := range r.order {
		if e.createdAt.Before(cutoff) {
			delete(r.evaluations, e.id)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.order = kept

	batches := r.batches[:0]
	for _, b := range r.batches {
		if !b.CreatedAt.Before(cutoff) {
			batches = append(batches, b)
		}
	}
	r.batches = batches

	return removed, nil
}
