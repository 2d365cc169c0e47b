// Package openai provides a Generator backed by the OpenAI chat completions
// API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/generator"
	"github.com/descant-dev/descant/pkg/jsonx"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// Generator completes transcripts against the OpenAI API.
type Generator struct {
	client *openai.Client
	model  string
}

// New creates a Generator for the given model. Request options are passed to
// the underlying client; credentials default to the environment.
func New(model string, options ...option.RequestOption) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		client: openai.NewClient(options...),
		model:  model,
	}
}

// Complete implements generator.Generator. HTTP 429 responses come back as a
// *generator.RateLimitError so shared limiters can arm their cooldown.
func (g *Generator) Complete(ctx context.Context, messages []chat.Message, params generator.Params) (generator.Response, error) {
	oaiParams, err := g.buildRequest(messages, params)
	if err != nil {
		return generator.Response{}, err
	}

	completion, err := g.client.Chat.Completions.New(ctx, oaiParams)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			return generator.Response{}, &generator.RateLimitError{Err: err}
		}
		return generator.Response{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return generator.Response{}, fmt.Errorf("openai completion returned no choices")
	}

	return responseFromChoice(completion.Choices[0]), nil
}

func (g *Generator) buildRequest(messages []chat.Message, params generator.Params) (openai.ChatCompletionNewParams, error) {
	converted, err := messagesToOpenAI(messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	oaiParams := openai.ChatCompletionNewParams{
		Messages: openai.F(converted),
		Model:    openai.F(g.model),
		N:        openai.Int(1),
	}
	if params.Temperature != 0 {
		oaiParams.Temperature = openai.Float(params.Temperature)
	}

	if len(params.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(params.Tools))
		for i, t := range params.Tools {
			if t.Function == nil {
				return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s has nil function", t.Name)
			}

			name, schema := t.ToNameAndSchema()
			jv, err := jsonx.ToDynamicJSON(schema)
			if err != nil {
				return openai.ChatCompletionNewParams{}, fmt.Errorf("converting schema for tool %s: %w", name, err)
			}

			def := openai.FunctionDefinitionParam{
				Name:       openai.String(name),
				Parameters: openai.F(shared.FunctionParameters(jv)),
			}
			if strings.TrimSpace(t.Description) != "" {
				def.Description = openai.String(t.Description)
			}

			tools[i] = openai.ChatCompletionToolParam{
				Type:     openai.F(openai.ChatCompletionToolTypeFunction),
				Function: openai.F(def),
			}
		}
		oaiParams.Tools = openai.F(tools)
	}

	if params.Output != nil {
		jv, err := jsonx.ToDynamicJSON(params.Output.Schema)
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("converting output schema: %w", err)
		}
		js := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   openai.String(params.Output.Name),
			Schema: openai.F[any](jv),
			Strict: openai.Bool(params.Output.Strict),
		}
		if params.Output.Description != "" {
			js.Description = openai.String(params.Output.Description)
		}
		oaiParams.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			shared.ResponseFormatJSONSchemaParam{
				Type:       openai.F(shared.ResponseFormatJSONSchemaTypeJSONSchema),
				JSONSchema: openai.F(js),
			},
		)
	}

	return oaiParams, nil
}

func messagesToOpenAI(messages []chat.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.System, chat.Developer:
			result = append(result, openai.SystemMessage(msg.Content.String()))
		case chat.User:
			result = append(result, openai.UserMessage(msg.Content.String()))
		case chat.Assistant:
			if msg.HasToolCalls() {
				tcd := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					tcd[i] = openai.ChatCompletionMessageToolCallParam{
						ID:   openai.String(tc.ID),
						Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
						Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      openai.String(tc.Name),
							Arguments: openai.String(tc.Arguments),
						}),
					}
				}
				result = append(result, openai.ChatCompletionMessageParam{
					Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
					ToolCalls: openai.F[any](tcd),
				})
				continue
			}
			result = append(result, openai.AssistantMessage(msg.Content.String()))
		case chat.Tool:
			result = append(result, openai.ToolMessage(msg.ToolCallID, msg.Content.String()))
		default:
			return nil, fmt.Errorf("role %q cannot be sent to the completions API", msg.Role)
		}
	}
	return result, nil
}

func responseFromChoice(choice openai.ChatCompletionChoice) generator.Response {
	resp := generator.Response{
		FinishReason: finishReason(choice.FinishReason),
	}

	msg := choice.Message
	if len(msg.ToolCalls) > 0 {
		calls := make([]chat.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			calls[i] = chat.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}
		resp.Message = chat.ToolCallMessage(calls...)
		return resp
	}

	resp.Message = chat.AssistantMessage(msg.Content)
	return resp
}

func finishReason(reason openai.ChatCompletionChoicesFinishReason) generator.FinishReason {
	switch reason {
	case openai.ChatCompletionChoicesFinishReasonStop:
		return generator.FinishStop
	case openai.ChatCompletionChoicesFinishReasonLength:
		return generator.FinishLength
	case openai.ChatCompletionChoicesFinishReasonToolCalls:
		return generator.FinishToolCalls
	default:
		return ""
	}
}
