package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

const defaultListLimit = 50

// PostgresRepository implements contracts.EvaluationRepository
// Full results are kept as JSONB; the scalar columns exist for filtering.
// ⭐ SSOT: 평가 결과 저장/조회는 여기서만
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new evaluation repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save upserts one evaluation
func (r *PostgresRepository) Save(ctx context.Context, e *contracts.Evaluation) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	var action, signal string
	var healthScore int
	if e.Recommendation != nil {
		action = string(e.Recommendation.Action)
	}
	if e.Valuation != nil {
		signal = string(e.Valuation.Signal)
	}
	if e.Health != nil {
		healthScore = e.Health.OverallScore
	}

	query := `
		INSERT INTO analysis.evaluations (
			id, symbol, industry, market_condition, action, signal,
			health_score, insufficient_data, weights_hash, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			action = EXCLUDED.action,
			signal = EXCLUDED.signal,
			health_score = EXCLUDED.health_score,
			insufficient_data = EXCLUDED.insufficient_data,
			payload = EXCLUDED.payload
	`

	_, err = r.pool.Exec(ctx, query,
		e.ID, e.Symbol, e.Industry, string(e.MarketCondition), action, signal,
		healthScore, e.InsufficientData, e.WeightsHash, payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation %s: %w", e.Symbol, err)
	}

	return nil
}

// SaveBatch stores a comparative run and its ranking in one transaction
func (r *PostgresRepository) SaveBatch(ctx context.Context, b *contracts.BatchEvaluation) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	skipped := b.Skipped
	if skipped == nil {
		skipped = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis.batch_evaluations (id, industry, skipped, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.Industry, skipped, payload, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	if b.Comparison != nil && len(b.Comparison.Ranking) > 0 {
		batch := &pgx.Batch{}
		for _, rr := range b.Comparison.Ranking {
			batch.Queue(`
				INSERT INTO analysis.batch_rankings (batch_id, rank, symbol, score, grade)
				VALUES ($1, $2, $3, $4, $5)
			`, b.ID, rr.Rank, rr.Symbol, rr.Score, string(rr.Grade))
		}

		br := tx.SendBatch(ctx, batch)
		for range b.Comparison.Ranking {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("failed to insert ranking: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close ranking batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves an evaluation by id
func (r *PostgresRepository) Get(ctx context.Context, id string) (*contracts.Evaluation, error) {
	row := r.pool.QueryRow(ctx, `SELECT payload FROM analysis.evaluations WHERE id = $1`, id)
	return scanEvaluation(row, id)
}

// Latest retrieves the newest evaluation for symbol
func (r *PostgresRepository) Latest(ctx context.Context, symbol string) (*contracts.Evaluation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT payload FROM analysis.evaluations
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, symbol)
	return scanEvaluation(row, symbol)
}

// List returns evaluations newest first
func (r *PostgresRepository) List(ctx context.Context, filter contracts.EvaluationFilter) ([]*contracts.Evaluation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT payload FROM analysis.evaluations
		WHERE ($1::text = '' OR symbol = $1) AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, filter.Symbol, filter.Since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Evaluation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e contracts.Evaluation
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Purge deletes evaluations and batches older than cutoff
// Rankings go with their batch. The count covers evaluations only.
func (r *PostgresRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM analysis.evaluations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge evaluations: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM analysis.batch_evaluations WHERE created_at < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to purge batches: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEvaluation(row pgx.Row, key string) (*contracts.Evaluation, error) {
	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, contracts.ErrEvaluationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	var e contracts.Evaluation
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
	}
	return &e, nil
}
