package descant

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/generator"
	"github.com/descant-dev/descant/pkg/stdx"
	"github.com/descant-dev/descant/prompt"
	"github.com/descant-dev/descant/tool"
	"github.com/descant-dev/descant/types"
	"github.com/descant-dev/descant/workflow"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

// DefaultMaxRounds bounds a conversation when no explicit budget is set. A
// round is one completion plus the execution of the tool calls it requested.
const DefaultMaxRounds = 10

// Flow describes a tool-calling conversation: how its opening messages come
// to be, which tools the model may call, what shape the answer must take, and
// which generator produces completions. A Flow is immutable after New and safe
// to run concurrently; every Run gets its own chat.
type Flow struct {
	name        string
	gen         generator.Generator
	messages    []chat.Message
	template    *prompt.Template
	templateRef string
	prompts     *prompt.Manager
	tools       []tool.Definition
	inputs      types.ContextVars
	output      *generator.StructuredOutput
	maxRounds   int
	temperature float64
	mode        workflow.ErrorMode
}

// Option configures a Flow.
type Option = opts.Option[Flow]

var (
	// Name labels the flow in logs and pipeline descriptions.
	Name = opts.ForName[Flow, string]("name")
	// Generator sets the completion backend. Required.
	Generator = opts.ForName[Flow, generator.Generator]("gen")
	// MaxRounds bounds the number of conversation rounds per run.
	MaxRounds = opts.ForName[Flow, int]("maxRounds")
	// Temperature sets the sampling temperature for every completion.
	Temperature = opts.ForName[Flow, float64]("temperature")
	// Prompts supplies the template manager used to resolve TemplateFile.
	Prompts = opts.ForName[Flow, *prompt.Manager]("prompts")
	// OnError sets the error mode the flow carries into fan-out pipelines.
	OnError = opts.ForName[Flow, workflow.ErrorMode]("mode")
)

// Messages sets literal opening messages.
func Messages(msg chat.Message, extra ...chat.Message) Option {
	return opts.Type[Flow](func(f *Flow) error {
		f.messages = append(f.messages, msg)
		f.messages = append(f.messages, extra...)
		return nil
	})
}

// Template sets an inline opening template, compiled eagerly so configuration
// mistakes surface at construction time.
func Template(name, text string) Option {
	return opts.Type[Flow](func(f *Flow) error {
		tmpl, err := prompt.Parse(name, text)
		if err != nil {
			return err
		}
		f.template = tmpl
		return nil
	})
}

// TemplateFile references an opening template by name, resolved through the
// flow's prompt manager at run time.
func TemplateFile(name string) Option {
	return opts.Type[Flow](func(f *Flow) error {
		f.templateRef = name
		return nil
	})
}

// Tools declares the capabilities the model may call during the conversation.
func Tools(def tool.Definition, extra ...tool.Definition) Option {
	return opts.Type[Flow](func(f *Flow) error {
		f.tools = append(f.tools, def)
		f.tools = append(f.tools, extra...)
		return nil
	})
}

// Inputs sets the flow's base variables. Per-run variables passed to Run merge
// over these.
func Inputs(vars types.ContextVars) Option {
	return opts.Type[Flow](func(f *Flow) error {
		f.inputs = vars.Clone()
		return nil
	})
}

// New creates a Flow from the given options.
func New(options ...Option) (*Flow, error) {
	f := &Flow{
		name:      "flow",
		maxRounds: DefaultMaxRounds,
	}
	if err := opts.Apply(f, options); err != nil {
		return nil, err
	}
	if f.gen == nil {
		return nil, fmt.Errorf("flow %s: a generator is required", f.name)
	}
	if f.maxRounds <= 0 {
		f.maxRounds = DefaultMaxRounds
	}
	return f, nil
}

// Must wraps New and panics on error.
func Must(options ...Option) *Flow {
	return stdx.Must1(New(options...))
}

// Round is one completed conversation round. Chat is the immutable history
// snapshot after the round's completion and tool executions; Previous links
// back through the run's earlier rounds.
type Round struct {
	Index    int
	Chat     *chat.Chat
	Previous *Round
}

// Run drives the conversation to completion and returns the final chat. The
// run ends when the model answers without requesting tools, or when the round
// budget is exhausted, in which case the last completed round's chat is
// returned without error. On failure the partial chat (with its error
// recorded) accompanies the error.
func (f *Flow) Run(ctx context.Context, extra types.ContextVars) (*chat.Chat, error) {
	var last *chat.Chat
	for round, err := range f.Rounds(ctx, extra) {
		if round != nil {
			last = round.Chat
		}
		if err != nil {
			return last, err
		}
	}
	return last, nil
}

// Rounds runs the conversation and yields every completed round as it
// happens. The final yield carries either the terminal round or the error that
// stopped the run (with the failed chat snapshot attached to its round).
// Stopping iteration early abandons the run.
func (f *Flow) Rounds(ctx context.Context, extra types.ContextVars) iter.Seq2[*Round, error] {
	return func(yield func(*Round, error) bool) {
		runID := uuid.New()
		log := slog.With(
			slog.String("run_id", runID.String()),
			slog.String("flow", f.name),
		)

		current, err := f.openingChat(extra)
		if err != nil {
			yield(nil, err)
			return
		}

		toolsByName := make(map[string]tool.Definition, len(f.tools))
		for _, td := range f.tools {
			toolsByName[td.Name] = td
		}

		params := generator.Params{
			Temperature: f.temperature,
			Tools:       f.tools,
			Output:      f.output,
		}

		var prev *Round
		for i := 0; i < f.maxRounds; i++ {
			resp, err := f.gen.Complete(ctx, current.Messages(), params)
			if err != nil {
				err = fmt.Errorf("completing round %d: %w", i, err)
				yield(&Round{Index: i, Chat: current.WithErr(err), Previous: prev}, err)
				return
			}
			current = current.Append(resp.Message)
			log.DebugContext(ctx, "model responded",
				slog.Int("round", i),
				slog.String("finish_reason", string(resp.FinishReason)),
				slog.Int("tool_calls", len(resp.Message.ToolCalls)))

			if !resp.Message.HasToolCalls() {
				yield(&Round{Index: i, Chat: current, Previous: prev}, nil)
				return
			}

			// tool calls execute sequentially, in emission order
			for _, call := range resp.Message.ToolCalls {
				def, found := toolsByName[call.Name]
				if !found {
					err := fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
					yield(&Round{Index: i, Chat: current.WithErr(err), Previous: prev}, err)
					return
				}

				result, err := def.Call(ctx, call.Arguments, current.Vars())
				if err != nil {
					err = fmt.Errorf("tool %s: %w", call.Name, err)
					yield(&Round{Index: i, Chat: current.WithErr(err), Previous: prev}, err)
					return
				}
				current = current.Append(chat.ToolMessage(call.ID, result))
			}

			round := &Round{Index: i, Chat: current, Previous: prev}
			if !yield(round, nil) {
				return
			}
			prev = round
		}

		log.DebugContext(ctx, "round budget exhausted", slog.Int("max_rounds", f.maxRounds))
	}
}

// openingChat builds the round-zero chat: merged variables, rendered or
// literal opening messages, and the declared output contract.
func (f *Flow) openingChat(extra types.ContextVars) (*chat.Chat, error) {
	vars := f.inputs.Merge(extra)

	var chatOpts []chat.Option
	if f.output != nil {
		instructions, err := outputInstructions(f.output.Schema)
		if err != nil {
			return nil, err
		}
		vars["output_instructions"] = instructions
		chatOpts = append(chatOpts, chat.WithOutputSchema(f.output.Schema))
	}
	chatOpts = append(chatOpts, chat.WithVars(vars))

	msgs := append([]chat.Message(nil), f.messages...)
	switch {
	case f.template != nil:
		rendered, err := f.template.Render(vars)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, rendered...)
	case f.templateRef != "":
		if f.prompts == nil {
			return nil, fmt.Errorf("flow %s references template %s but has no prompt manager", f.name, f.templateRef)
		}
		rendered, err := f.prompts.Render(f.templateRef, vars)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, rendered...)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("flow %s has no opening messages", f.name)
	}

	return chat.New(msgs, chatOpts...), nil
}
