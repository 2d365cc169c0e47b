package descant

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/generator"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

var (
	// ErrToolNotFound means the model requested a tool the flow never
	// declared. The run is aborted; the transcript cannot be repaired.
	ErrToolNotFound = errors.New("tool not found")
	// ErrNoOutputSchema means Output was called on a chat whose flow declared
	// no structured-output contract.
	ErrNoOutputSchema = errors.New("no output schema declared")
	// ErrOutputMismatch means the model's answer does not parse as the
	// declared output type.
	ErrOutputMismatch = errors.New("output does not match declared schema")
)

// Structured outputs use a subset of JSON schema; these flags keep the
// reflected schema inside it.
var outputReflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

func jsonSchemaFor[T any]() *jsonschema.Schema {
	var t T
	if _, isGjsonResult := any(t).(gjson.Result); isGjsonResult {
		return nil
	}
	if reflect.TypeFor[T]().Kind() == reflect.String {
		return nil
	}
	return outputReflector.Reflect(t)
}

// OutputType declares the flow's structured-output contract from a Go type.
// The reflected schema constrains the backend's completion, is exposed to
// templates as the output_instructions variable, and is checked by Output.
// String and gjson.Result leave the answer unconstrained.
func OutputType[T any](name, description string) Option {
	return opts.Type[Flow](func(f *Flow) error {
		schema := jsonSchemaFor[T]()
		if schema != nil {
			f.output = &generator.StructuredOutput{
				Name:        name,
				Description: description,
				Schema:      schema,
				Strict:      true,
			}
		}
		return nil
	})
}

func outputInstructions(schema *jsonschema.Schema) (string, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshaling output schema: %w", err)
	}
	return "Provide your answer in JSON format, respecting this schema:\n" + string(raw), nil
}

// Output parses the chat's final answer as T. The chat must come from a flow
// that declared the contract with OutputType, otherwise ErrNoOutputSchema.
func Output[T any](c *chat.Chat) (T, error) {
	var out T
	if c == nil || c.OutputSchema() == nil {
		return out, ErrNoOutputSchema
	}

	msgs := c.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role != chat.Assistant || msg.HasToolCalls() {
			continue
		}
		if err := json.Unmarshal([]byte(msg.Content.String()), &out); err != nil {
			return out, fmt.Errorf("%w: %v", ErrOutputMismatch, err)
		}
		return out, nil
	}
	return out, fmt.Errorf("%w: chat has no answer", ErrOutputMismatch)
}
