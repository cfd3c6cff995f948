package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// EvaluationRepository persists pipeline results
type EvaluationRepository interface {
	Save(ctx context.Context, e *Evaluation) error
	SaveBatch(ctx context.Context, b *BatchEvaluation) error
	Get(ctx context.Context, id string) (*Evaluation, error)
	// Latest returns the most recent evaluation for symbol
	Latest(ctx context.Context, symbol string) (*Evaluation, error)
	List(ctx context.Context, filter EvaluationFilter) ([]*Evaluation, error)
}

// EvaluationFilter narrows List results
type EvaluationFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}
