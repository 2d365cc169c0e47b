package workflow

import (
	"context"
	"errors"
)

// ErrorMode controls how a step's failures are treated by the fan-out entry
// points (RunStream, RunBatch, RunMany and friends).
type ErrorMode string

const (
	// Raise propagates failures to the caller. The first failing item aborts
	// a batch or stream.
	Raise ErrorMode = "raise"
	// Pass converts failures into absent results that are filtered out of
	// aggregate output. A bare Run still returns the error; Pass only applies
	// at the fan-out layer.
	Pass ErrorMode = "pass"
)

// Step is a named unit of async work over a single input producing a single
// output. Combinators built on Steps return Steps themselves, so arbitrarily
// deep pipelines keep the same contract.
type Step[In, Out any] interface {
	// Name returns the step's short name.
	Name() string
	// Mode returns the step's error handling mode. Combinators inherit the
	// mode of the step they wrap unless explicitly overridden.
	Mode() ErrorMode
	// Run executes the unit of work. Failures are always returned here,
	// whatever the mode; Pass semantics are applied by RunOne and the fan-out
	// entry points.
	Run(ctx context.Context, in In) (Out, error)
	// Describe returns a human-readable provenance string for the pipeline.
	Describe() string
}

// Option configures a step or combinator at construction time.
type Option func(*config)

type config struct {
	mode    ErrorMode
	modeSet bool
}

// OnError sets the error handling mode.
func OnError(mode ErrorMode) Option {
	return func(c *config) {
		c.mode = mode
		c.modeSet = true
	}
}

func buildConfig(inherited ErrorMode, opts []Option) config {
	cfg := config{mode: inherited}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type funcStep[In, Out any] struct {
	name string
	mode ErrorMode
	fn   func(context.Context, In) (Out, error)
}

// New creates a primitive step from a function. The default error mode is
// Raise.
func New[In, Out any](name string, fn func(context.Context, In) (Out, error), opts ...Option) Step[In, Out] {
	cfg := buildConfig(Raise, opts)
	return &funcStep[In, Out]{name: name, mode: cfg.mode, fn: fn}
}

func (s *funcStep[In, Out]) Name() string    { return s.name }
func (s *funcStep[In, Out]) Mode() ErrorMode { return s.mode }
func (s *funcStep[In, Out]) Describe() string {
	return s.name
}

func (s *funcStep[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	return s.fn(ctx, in)
}

// RunOne runs the step and applies its error mode: under Raise the failure is
// returned, under Pass it is converted into an absent result (ok == false).
// Structural violations (ShapeError) stay fatal in either mode.
func RunOne[In, Out any](ctx context.Context, s Step[In, Out], in In) (out Out, ok bool, err error) {
	out, err = s.Run(ctx, in)
	if err != nil {
		var zero Out
		var shapeErr *ShapeError
		if s.Mode() == Raise || errors.As(err, &shapeErr) {
			return zero, false, err
		}
		return zero, false, nil
	}
	return out, true, nil
}
