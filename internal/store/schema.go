package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent; EnsureSchema may run on every start
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS analysis`,
	`CREATE TABLE IF NOT EXISTS analysis.evaluations (
		id                UUID PRIMARY KEY,
		symbol            TEXT NOT NULL,
		industry          TEXT NOT NULL DEFAULT '',
		market_condition  TEXT NOT NULL,
		action            TEXT NOT NULL DEFAULT '',
		signal            TEXT NOT NULL DEFAULT '',
		health_score      INTEGER NOT NULL DEFAULT 0,
		insufficient_data BOOLEAN NOT NULL DEFAULT FALSE,
		weights_hash      TEXT NOT NULL DEFAULT '',
		payload           JSONB NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_symbol_created
		ON analysis.evaluations (symbol, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS analysis.batch_evaluations (
		id         UUID PRIMARY KEY,
		industry   TEXT NOT NULL DEFAULT '',
		skipped    TEXT[] NOT NULL DEFAULT '{}',
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analysis.batch_rankings (
		batch_id UUID NOT NULL REFERENCES analysis.batch_evaluations (id) ON DELETE CASCADE,
		rank     INTEGER NOT NULL,
		symbol   TEXT NOT NULL,
		score    INTEGER NOT NULL,
		grade    TEXT NOT NULL,
		PRIMARY KEY (batch_id, rank)
	)`,
}

// EnsureSchema creates the analysis tables when missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
