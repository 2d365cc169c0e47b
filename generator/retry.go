package generator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/descant-dev/descant/chat"
)

// Policy configures the retry decorator.
type Policy struct {
	// MaxRetries bounds the number of re-attempts after the first try.
	// Zero means the default of 3.
	MaxRetries uint64
	// BaseDelay is the first backoff interval, doubled (with jitter) per
	// attempt. Zero means the default of 500ms.
	BaseDelay time.Duration
	// MaxDelay caps the backoff interval. Zero means uncapped.
	MaxDelay time.Duration
	// ShouldRetry decides whether a failure is worth another attempt. Nil
	// retries everything except context cancellation.
	ShouldRetry func(error) bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	return p
}

type retrying struct {
	next   Generator
	policy Policy
}

// WithRetry re-attempts failed completions with exponential backoff. The last
// attempt's error is returned when the budget runs out.
func WithRetry(gen Generator, policy Policy) Generator {
	return &retrying{next: gen, policy: policy.withDefaults()}
}

func (r *retrying) Complete(ctx context.Context, messages []chat.Message, params Params) (Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.policy.BaseDelay
	if r.policy.MaxDelay > 0 {
		bo.MaxInterval = r.policy.MaxDelay
	}

	var resp Response
	operation := func() error {
		var err error
		resp, err = r.next.Complete(ctx, messages, params)
		if err == nil {
			return nil
		}
		if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, r.policy.MaxRetries), ctx))
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}
