// Package generator abstracts chat completion backends. A Generator turns a
// message transcript into the model's next message; decorators layer
// admission control and retries on top without the caller knowing.
package generator

import (
	"context"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/tool"
	"github.com/invopop/jsonschema"
	"golang.org/x/sync/errgroup"
)

// FinishReason reports why the model stopped emitting tokens.
type FinishReason string

const (
	// FinishStop is a natural end of turn.
	FinishStop FinishReason = "stop"
	// FinishLength means the completion hit the token budget.
	FinishLength FinishReason = "length"
	// FinishToolCalls means the model stopped to request tool invocations.
	FinishToolCalls FinishReason = "tool_calls"
)

// StructuredOutput asks the backend to constrain the completion to a JSON
// schema.
type StructuredOutput struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Strict      bool
}

// Params tunes a single completion request.
type Params struct {
	// Temperature is the sampling temperature. The zero value means the
	// backend default (1).
	Temperature float64
	// Tools are the capabilities advertised to the model for this request.
	Tools []tool.Definition
	// Output, when set, constrains the completion to the given schema.
	Output *StructuredOutput
}

// Response is the model's reply to a completion request.
type Response struct {
	Message      chat.Message
	FinishReason FinishReason
}

// Generator produces the model's next message for a transcript.
type Generator interface {
	Complete(ctx context.Context, messages []chat.Message, params Params) (Response, error)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, messages []chat.Message, params Params) (Response, error)

func (f Func) Complete(ctx context.Context, messages []chat.Message, params Params) (Response, error) {
	return f(ctx, messages, params)
}

// BatchComplete runs one completion per transcript concurrently. Responses
// align positionally with the transcripts; the first failure cancels the rest.
func BatchComplete(ctx context.Context, gen Generator, transcripts [][]chat.Message, params Params) ([]Response, error) {
	responses := make([]Response, len(transcripts))

	g, gctx := errgroup.WithContext(ctx)
	for i, transcript := range transcripts {
		g.Go(func() error {
			resp, err := gen.Complete(gctx, transcript, params)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}
