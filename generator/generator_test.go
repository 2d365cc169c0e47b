package generator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoGen() Generator {
	return Func(func(_ context.Context, messages []chat.Message, _ Params) (Response, error) {
		last := messages[len(messages)-1]
		return Response{
			Message:      chat.AssistantMessage("echo: " + last.Content.String()),
			FinishReason: FinishStop,
		}, nil
	})
}

func TestBatchComplete_Positional(t *testing.T) {
	transcripts := [][]chat.Message{
		{chat.UserMessage("one")},
		{chat.UserMessage("two")},
		{chat.UserMessage("three")},
	}

	responses, err := BatchComplete(context.Background(), echoGen(), transcripts, Params{})
	require.NoError(t, err)
	require.Len(t, responses, 3)
	assert.Equal(t, "echo: one", responses[0].Message.Content.String())
	assert.Equal(t, "echo: two", responses[1].Message.Content.String())
	assert.Equal(t, "echo: three", responses[2].Message.Content.String())
}

func TestBatchComplete_FailFast(t *testing.T) {
	boom := errors.New("backend down")
	gen := Func(func(_ context.Context, messages []chat.Message, _ Params) (Response, error) {
		if messages[0].Content.String() == "bad" {
			return Response{}, boom
		}
		return Response{Message: chat.AssistantMessage("ok")}, nil
	})

	_, err := BatchComplete(context.Background(), gen, [][]chat.Message{
		{chat.UserMessage("good")},
		{chat.UserMessage("bad")},
	}, Params{})
	assert.ErrorIs(t, err, boom)
}

func TestIsRateLimit(t *testing.T) {
	inner := errors.New("429 from upstream")
	err := fmt.Errorf("completing: %w", &RateLimitError{Err: inner})

	assert.True(t, IsRateLimit(err))
	assert.ErrorIs(t, err, inner)
	assert.False(t, IsRateLimit(errors.New("plain")))
}

func TestRateLimited_PassesThrough(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Strategy{RPM: 600000, Burst: 2})
	gen := RateLimited(echoGen(), limiter)

	resp, err := gen.Complete(context.Background(), []chat.Message{chat.UserMessage("hi")}, Params{})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", resp.Message.Content.String())
}

func TestRateLimited_CooldownAfterClassifiedFailure(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Strategy{
		RPM:          600000,
		Burst:        2,
		CooldownBase: 80 * time.Millisecond,
		IsRateLimit:  IsRateLimit,
	})

	var calls atomic.Int32
	flaky := Func(func(context.Context, []chat.Message, Params) (Response, error) {
		if calls.Add(1) == 1 {
			return Response{}, &RateLimitError{}
		}
		return Response{Message: chat.AssistantMessage("ok")}, nil
	})
	gen := RateLimited(flaky, limiter)

	_, err := gen.Complete(context.Background(), []chat.Message{chat.UserMessage("a")}, Params{})
	require.True(t, IsRateLimit(err))

	start := time.Now()
	_, err = gen.Complete(context.Background(), []chat.Message{chat.UserMessage("b")}, Params{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond,
		"second admission must wait out the cooldown window")
}

func TestWithRetry_EventualSuccess(t *testing.T) {
	var calls atomic.Int32
	flaky := Func(func(context.Context, []chat.Message, Params) (Response, error) {
		if calls.Add(1) < 3 {
			return Response{}, errors.New("transient")
		}
		return Response{Message: chat.AssistantMessage("done")}, nil
	})

	gen := WithRetry(flaky, Policy{MaxRetries: 5, BaseDelay: time.Millisecond})
	resp, err := gen.Complete(context.Background(), []chat.Message{chat.UserMessage("x")}, Params{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Message.Content.String())
	assert.EqualValues(t, 3, calls.Load())
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	boom := errors.New("always failing")
	var calls atomic.Int32
	gen := WithRetry(Func(func(context.Context, []chat.Message, Params) (Response, error) {
		calls.Add(1)
		return Response{}, boom
	}), Policy{MaxRetries: 2, BaseDelay: time.Millisecond})

	_, err := gen.Complete(context.Background(), []chat.Message{chat.UserMessage("x")}, Params{})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 3, calls.Load(), "first try plus two retries")
}

func TestWithRetry_ShouldRetryStopsEarly(t *testing.T) {
	fatal := errors.New("bad request")
	var calls atomic.Int32
	gen := WithRetry(Func(func(context.Context, []chat.Message, Params) (Response, error) {
		calls.Add(1)
		return Response{}, fatal
	}), Policy{
		MaxRetries:  5,
		BaseDelay:   time.Millisecond,
		ShouldRetry: func(err error) bool { return !errors.Is(err, fatal) },
	})

	_, err := gen.Complete(context.Background(), []chat.Message{chat.UserMessage("x")}, Params{})
	assert.ErrorIs(t, err, fatal)
	assert.EqualValues(t, 1, calls.Load())
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := WithRetry(Func(func(context.Context, []chat.Message, Params) (Response, error) {
		return Response{}, errors.New("transient")
	}), Policy{MaxRetries: 10, BaseDelay: 50 * time.Millisecond})

	_, err := gen.Complete(ctx, []chat.Message{chat.UserMessage("x")}, Params{})
	assert.Error(t, err)
}
