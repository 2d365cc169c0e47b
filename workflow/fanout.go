package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result carries one branch outcome in a stream. Exactly one of Value and Err
// is meaningful.
type Result[T any] struct {
	Value T
	Err   error
}

// Emit returns a channel that yields the given items and then closes. It is
// the usual way to feed a finite input set into RunStream.
func Emit[T any](items ...T) <-chan T {
	ch := make(chan T, len(items))
	for _, item := range items {
		ch <- item
	}
	close(ch)
	return ch
}

func repeat[T any](n int, item T) <-chan T {
	ch := make(chan T, n)
	for i := 0; i < n; i++ {
		ch <- item
	}
	close(ch)
	return ch
}

// RunStream schedules one concurrent task per input item, eagerly, and yields
// results in completion order, not submission order. Under Raise, the first
// failure is emitted as a Result with Err set and the stream closes; the
// remaining tasks are abandoned, not cancelled. Under Pass, failing items are
// silently omitted and the stream runs to completion. Structural violations
// terminate the stream in either mode.
//
// The only backpressure on scheduling is whatever admission control the step
// itself performs (for example a shared rate limiter).
func RunStream[In, Out any](ctx context.Context, s Step[In, Out], inputs <-chan In) <-chan Result[Out] {
	out := make(chan Result[Out])

	go func() {
		defer close(out)

		var items []In
		for item := range inputs {
			items = append(items, item)
		}

		type outcome struct {
			value Out
			ok    bool
			err   error
		}

		// Buffered to len(items) so abandoned workers never block after an
		// early exit.
		inner := make(chan outcome, len(items))
		for _, item := range items {
			go func(item In) {
				value, ok, err := RunOne(ctx, s, item)
				inner <- outcome{value: value, ok: ok, err: err}
			}(item)
		}

		for range items {
			res := <-inner
			if res.err != nil {
				out <- Result[Out]{Err: res.err}
				return
			}
			if !res.ok {
				continue
			}
			select {
			case out <- Result[Out]{Value: res.value}:
			case <-ctx.Done():
				out <- Result[Out]{Err: ctx.Err()}
				return
			}
		}
	}()

	return out
}

// RunBatch runs the step over every input and waits for all of them. Under
// Raise the first failure aborts the batch and is returned; on success the
// results align positionally with the inputs. Under Pass, failing items are
// omitted and the surviving results are returned; callers must not assume the
// surviving subset aligns with input indices.
func RunBatch[In, Out any](ctx context.Context, s Step[In, Out], inputs []In) ([]Out, error) {
	results := make([]Out, len(inputs))
	present := make([]bool, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			value, ok, err := RunOne(gctx, s, in)
			if err != nil {
				return err
			}
			if ok {
				results[i] = value
				present[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	survivors := make([]Out, 0, len(inputs))
	for i, keep := range present {
		if keep {
			survivors = append(survivors, results[i])
		}
	}
	return survivors, nil
}

// RunMany applies the step to n copies of the same input and waits for all of
// them, with RunBatch semantics.
func RunMany[In, Out any](ctx context.Context, s Step[In, Out], n int, in In) ([]Out, error) {
	inputs := make([]In, n)
	for i := range inputs {
		inputs[i] = in
	}
	return RunBatch(ctx, s, inputs)
}

// StreamMany streams the results of applying the step to n copies of the same
// input, with RunStream semantics.
func StreamMany[In, Out any](ctx context.Context, s Step[In, Out], n int, in In) <-chan Result[Out] {
	return RunStream(ctx, s, repeat(n, in))
}
