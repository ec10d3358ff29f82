package tumor

import (
	"errors"
	"fmt"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"
)

var (
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrInvalidPosition       = lattice.ErrInvalidPosition
	ErrDegenerateProbability = errors.New("degenerate probability")
	ErrFaulted               = errors.New("simulation faulted")
)

// ParamError reports a construction parameter outside its allowed range.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidParameter, e.Field, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

// ProbabilityError reports a conditional transition probability that left [0,1].
type ProbabilityError struct {
	Transition string
	Value      float64
	Identity   int
	Tick       int
}

func (e *ProbabilityError) Error() string {
	return fmt.Sprintf("%s: %s=%g (occupant %d, tick %d)", ErrDegenerateProbability, e.Transition, e.Value, e.Identity, e.Tick)
}

func (e *ProbabilityError) Unwrap() error { return ErrDegenerateProbability }
