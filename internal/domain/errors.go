package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")

	ErrDomain           = errors.New("input outside model domain")
	ErrConvergence      = errors.New("solver did not converge")
	ErrNoArbitrageBound = errors.New("target price outside no-arbitrage bounds")
	ErrAmbiguousInput   = errors.New("exactly one of volatility, spot, price must be missing")
)

// DomainError reports an input that violates a precondition of the model.
type DomainError struct {
	Field  string
	Value  any
	Reason string
}

func (e *DomainError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s: %s", ErrDomain, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%v: %s", ErrDomain, e.Field, e.Value, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// ConvergenceError reports a root-finder that ran out of iterations or bracket
// expansions without meeting tolerance.
type ConvergenceError struct {
	Solver     string
	Iterations int
	Residual   float64
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: %s after %d iterations (residual %g): %s",
		ErrConvergence, e.Solver, e.Iterations, e.Residual, e.Reason)
}

func (e *ConvergenceError) Unwrap() error { return ErrConvergence }

// NoArbitrageBoundError reports a target price that no model input can reproduce.
type NoArbitrageBoundError struct {
	Target float64
	Lower  float64
	Upper  float64
}

func (e *NoArbitrageBoundError) Error() string {
	return fmt.Sprintf("%s: target %g not in [%g, %g]", ErrNoArbitrageBound, e.Target, e.Lower, e.Upper)
}

func (e *NoArbitrageBoundError) Unwrap() error { return ErrNoArbitrageBound }

// AmbiguousInputError lists the optional fields that were left empty when
// exactly one was expected.
type AmbiguousInputError struct {
	Missing []string
}

func (e *AmbiguousInputError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s: none missing", ErrAmbiguousInput)
	}
	return fmt.Sprintf("%s: missing %s", ErrAmbiguousInput, strings.Join(e.Missing, ", "))
}

func (e *AmbiguousInputError) Unwrap() error { return ErrAmbiguousInput }

// IsInputError reports whether err stems from caller input rather than from
// infrastructure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrDomain) || errors.Is(err, ErrAmbiguousInput)
}

// IsUnsolvable reports whether err means the engine could not produce a
// value for otherwise valid input.
func IsUnsolvable(err error) bool {
	return errors.Is(err, ErrNoArbitrageBound) || errors.Is(err, ErrConvergence)
}
