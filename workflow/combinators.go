package workflow

import (
	"context"
	"fmt"

	"github.com/descant-dev/descant/pkg/reflectx"
	"golang.org/x/sync/errgroup"
)

// ShapeError reports a structural violation: a step produced output whose
// shape a combinator cannot work with. It is a programming error, not a
// transient failure, and is fatal regardless of error mode.
type ShapeError struct {
	Step string
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("step %q: expected %s, got %s", e.Step, e.Want, e.Got)
}

type composedStep[In, Mid, Out any] struct {
	first  Step[In, Mid]
	second Step[Mid, Out]
	mode   ErrorMode
}

// Then chains two steps end to end, feeding the first step's output into the
// second. The composed step inherits the first step's error mode unless
// overridden; a failure at either stage surfaces as the composed unit's
// failure, so fan-out entry points under Pass drop the item silently.
func Then[In, Mid, Out any](first Step[In, Mid], second Step[Mid, Out], opts ...Option) Step[In, Out] {
	cfg := buildConfig(first.Mode(), opts)
	return &composedStep[In, Mid, Out]{first: first, second: second, mode: cfg.mode}
}

func (s *composedStep[In, Mid, Out]) Name() string {
	return s.first.Name() + "|" + s.second.Name()
}

func (s *composedStep[In, Mid, Out]) Mode() ErrorMode { return s.mode }

func (s *composedStep[In, Mid, Out]) Describe() string {
	return s.first.Describe() + " | " + s.second.Describe()
}

func (s *composedStep[In, Mid, Out]) Run(ctx context.Context, in In) (Out, error) {
	var zero Out
	intermediate, err := s.first.Run(ctx, in)
	if err != nil {
		return zero, err
	}
	return s.second.Run(ctx, intermediate)
}

type mappedStep[In, Mid, Out any] struct {
	parent Step[In, Mid]
	fnName string
	fn     func(Mid) (Out, error)
	mode   ErrorMode
}

// Map returns a step that applies fn to the wrapped step's output. A failure
// of fn obeys the new step's error mode.
func Map[In, Mid, Out any](parent Step[In, Mid], fn func(Mid) (Out, error), opts ...Option) Step[In, Out] {
	cfg := buildConfig(parent.Mode(), opts)
	return &mappedStep[In, Mid, Out]{
		parent: parent,
		fnName: reflectx.FunctionName(fn),
		fn:     fn,
		mode:   cfg.mode,
	}
}

func (s *mappedStep[In, Mid, Out]) Name() string    { return s.parent.Name() }
func (s *mappedStep[In, Mid, Out]) Mode() ErrorMode { return s.mode }

func (s *mappedStep[In, Mid, Out]) Describe() string {
	return fmt.Sprintf("%s |> map(%s)", s.parent.Describe(), s.fnName)
}

func (s *mappedStep[In, Mid, Out]) Run(ctx context.Context, in In) (Out, error) {
	var zero Out
	result, err := s.parent.Run(ctx, in)
	if err != nil {
		return zero, err
	}
	return s.fn(result)
}

type flatMappedStep[In, Out, Elem, NewOut any] struct {
	parent Step[In, Out]
	next   Step[Elem, NewOut]
	mode   ErrorMode
}

// FlatMap returns a step that requires the parent step's output to be a slice
// of the next step's input type, applies next to every element concurrently,
// and returns the surviving results. A non-slice parent output is a
// ShapeError whatever the error mode. Elements dropped by next under Pass are
// filtered out; zero survivors yield an empty slice, not an error.
func FlatMap[In, Out, Elem, NewOut any](parent Step[In, Out], next Step[Elem, NewOut], opts ...Option) Step[In, []NewOut] {
	cfg := buildConfig(parent.Mode(), opts)
	return &flatMappedStep[In, Out, Elem, NewOut]{parent: parent, next: next, mode: cfg.mode}
}

func (s *flatMappedStep[In, Out, Elem, NewOut]) Name() string {
	return s.parent.Name() + "|" + s.next.Name()
}

func (s *flatMappedStep[In, Out, Elem, NewOut]) Mode() ErrorMode { return s.mode }

func (s *flatMappedStep[In, Out, Elem, NewOut]) Describe() string {
	return fmt.Sprintf("%s |> flat-map(%s)", s.parent.Describe(), s.next.Describe())
}

func (s *flatMappedStep[In, Out, Elem, NewOut]) Run(ctx context.Context, in In) ([]NewOut, error) {
	out, err := s.parent.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	items, ok := any(out).([]Elem)
	if !ok {
		var want []Elem
		return nil, &ShapeError{
			Step: s.parent.Describe(),
			Want: fmt.Sprintf("%T", want),
			Got:  fmt.Sprintf("%T", out),
		}
	}

	results := make([]NewOut, len(items))
	present := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			value, keep, err := RunOne(gctx, s.next, item)
			if err != nil {
				return err
			}
			if keep {
				results[i] = value
				present[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	survivors := make([]NewOut, 0, len(items))
	for i, keep := range present {
		if keep {
			survivors = append(survivors, results[i])
		}
	}
	return survivors, nil
}
