// Package errs defines the failure taxonomy shared by the extraction,
// solve, prediction and scoring stages.
//
// Every typed error matches its sentinel through errors.Is, so callers can
// branch on the category without caring about the details:
//
//	if errors.Is(err, errs.ErrSingularSystem) {
//	    // supply sigma > 0 and re-run
//	}
package errs

import (
	"errors"
	"fmt"
)

// Error categories.
var (
	ErrNumerical         = errors.New("numerical error")
	ErrSingularSystem    = errors.New("singular system")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// NumericalError reports a non-finite value produced by a derivative or
// a forward evaluation.
type NumericalError struct {
	Op    string  // Stage that produced the value (e.g., "jacobian")
	Row   int     // Output index, -1 when not applicable
	Col   int     // Flat parameter index, -1 when not applicable
	Param string  // Parameter name owning Col
	Value float64 // Offending value
}

// Error implements the error interface.
func (e *NumericalError) Error() string {
	switch {
	case e.Param != "":
		return fmt.Sprintf("%s: non-finite value %v at output %d, parameter %q (column %d)", e.Op, e.Value, e.Row, e.Param, e.Col)
	case e.Row >= 0:
		return fmt.Sprintf("%s: non-finite value %v at output %d", e.Op, e.Value, e.Row)
	default:
		return fmt.Sprintf("%s: non-finite value %v", e.Op, e.Value)
	}
}

// Is matches ErrNumerical.
func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}

// SingularSystemError reports an unregularised normal-equations solve on a
// rank-deficient system.
type SingularSystemError struct {
	Dim    int     // Size of the factorised matrix
	Sigma2 float64 // Regularisation that was supplied
	Cond   float64 // Condition estimate, +Inf when factorisation failed
}

// Error implements the error interface.
func (e *SingularSystemError) Error() string {
	return fmt.Sprintf("singular system: %dx%d gram matrix with sigma2=%g (condition %g); supply sigma2 > 0",
		e.Dim, e.Dim, e.Sigma2, e.Cond)
}

// Is matches ErrSingularSystem.
func (e *SingularSystemError) Is(target error) bool {
	return target == ErrSingularSystem
}

// ShapeMismatchError reports disagreeing dimensions or parameter ordering.
type ShapeMismatchError struct {
	What string // Which quantity disagreed
	Want any
	Got  any
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s: want %v, got %v", e.What, e.Want, e.Got)
}

// Is matches ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// ResourceExhaustedError reports a computation whose memory estimate exceeds
// the configured limit. There is no automatic fallback.
type ResourceExhaustedError struct {
	Strategy string
	Needed   int64 // Estimated bytes
	Limit    int64 // Configured bytes
}

// Error implements the error interface.
func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("resource exhausted: %s strategy needs ~%d bytes, limit is %d", e.Strategy, e.Needed, e.Limit)
}

// Is matches ErrResourceExhausted.
func (e *ResourceExhaustedError) Is(target error) bool {
	return target == ErrResourceExhausted
}

// Shape returns a ShapeMismatchError.
func Shape(what string, want, got any) error {
	return &ShapeMismatchError{What: what, Want: want, Got: got}
}
