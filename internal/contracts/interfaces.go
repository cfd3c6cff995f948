package contracts

import (
	"context"
)

// SnapshotProvider supplies instrument snapshots (S0)
// ⭐ SSOT: market-data collaborator interface
type SnapshotProvider interface {
	// Snapshot returns the latest snapshot for symbol.
	// ErrSnapshotNotFound is returned when the provider has nothing for it.
	Snapshot(ctx context.Context, symbol string) (*Snapshot, error)
	// Symbols lists every symbol the provider can serve
	Symbols(ctx context.Context) ([]string, error)
}

// QualityChecker validates a snapshot before analysis
type QualityChecker interface {
	Validate(s *Snapshot, required []string) *ValidationResult
}

// WeightSource supplies the effective category weights for an industry
type WeightSource interface {
	EffectiveWeights(industry string) map[Category]float64
}
