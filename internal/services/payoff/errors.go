package payoff

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is returned (wrapped in a *ParameterError) when the
// inputs violate the payoff invariants. No simulation is run in that case.
var ErrInvalidParameter = errors.New("invalid payoff parameter")

// ParameterError names the offending field
type ParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s %s (got %v)", e.Field, e.Reason, e.Value)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalid(field string, value float64, reason string) error {
	return &ParameterError{Field: field, Value: value, Reason: reason}
}
