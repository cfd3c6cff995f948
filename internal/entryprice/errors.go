package entryprice

import (
	"errors"
	"fmt"
)

// ErrNoCompositeFairValue is matched by every InsufficientDataError
var ErrNoCompositeFairValue = errors.New("no composite fair value available")

// InsufficientDataError is returned when entry prices cannot be derived
type InsufficientDataError struct {
	Symbol string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Symbol, ErrNoCompositeFairValue)
	}
	return fmt.Sprintf("%s: %v: %s", e.Symbol, ErrNoCompositeFairValue, e.Reason)
}

// Is lets errors.Is(err, ErrNoCompositeFairValue) match
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrNoCompositeFairValue
}
