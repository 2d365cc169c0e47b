package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/ratelimit"
)

// RateLimitError marks a completion rejected by the backend for exceeding its
// request rate. The limiter's cooldown logic keys off this classification.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err carries a RateLimitError anywhere in its
// chain. Suitable as a ratelimit.Strategy classifier.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

type rateLimited struct {
	next    Generator
	limiter *ratelimit.Limiter
}

// RateLimited gates every completion through the given limiter. Concurrent
// callers sharing the limiter, including the branches of a fan-out, share its
// burst and rate budget; rate-limit classified failures feed its cooldown.
func RateLimited(gen Generator, limiter *ratelimit.Limiter) Generator {
	return &rateLimited{next: gen, limiter: limiter}
}

func (r *rateLimited) Complete(ctx context.Context, messages []chat.Message, params Params) (Response, error) {
	var resp Response
	err := r.limiter.Do(ctx, func(ctx context.Context) error {
		var cerr error
		resp, cerr = r.next.Complete(ctx, messages, params)
		return cerr
	})
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}
