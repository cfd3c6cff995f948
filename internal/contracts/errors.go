package contracts

import "errors"

var (
	// ErrSnapshotNotFound is returned by providers that have no data for a symbol
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrEvaluationNotFound is returned by the evaluation store
	ErrEvaluationNotFound = errors.New("evaluation not found")
)
