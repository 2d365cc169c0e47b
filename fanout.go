package descant

import (
	"context"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/types"
	"github.com/descant-dev/descant/workflow"
)

// Step adapts the flow to a workflow step taking per-run variables and
// producing the final chat. The step inherits the flow's error mode, so a
// pass-mode flow's failed branches drop out of fan-out aggregates.
func (f *Flow) Step() workflow.Step[types.ContextVars, *chat.Chat] {
	var stepOpts []workflow.Option
	if f.mode != "" {
		stepOpts = append(stepOpts, workflow.OnError(f.mode))
	}
	return workflow.New(f.name, func(ctx context.Context, in types.ContextVars) (*chat.Chat, error) {
		return f.Run(ctx, in)
	}, stepOpts...)
}

// RunMany runs the flow n times over the same variables concurrently.
func (f *Flow) RunMany(ctx context.Context, n int, extra types.ContextVars) ([]*chat.Chat, error) {
	return workflow.RunMany(ctx, f.Step(), n, extra)
}

// RunBatch runs the flow once per variable set concurrently. Each set merges
// over the flow's base inputs.
func (f *Flow) RunBatch(ctx context.Context, inputs []types.ContextVars) ([]*chat.Chat, error) {
	return workflow.RunBatch(ctx, f.Step(), inputs)
}

// StreamMany is RunMany yielding each finished chat as it completes.
func (f *Flow) StreamMany(ctx context.Context, n int, extra types.ContextVars) <-chan workflow.Result[*chat.Chat] {
	return workflow.StreamMany(ctx, f.Step(), n, extra)
}

// StreamBatch is RunBatch yielding each finished chat as it completes.
func (f *Flow) StreamBatch(ctx context.Context, inputs []types.ContextVars) <-chan workflow.Result[*chat.Chat] {
	return workflow.RunStream(ctx, f.Step(), workflow.Emit(inputs...))
}
