package chat

import (
	"fmt"
	"strings"

	"github.com/descant-dev/descant/types"
	"github.com/invopop/jsonschema"
)

// Error is a serializable record of a failure attached to a chat. A chat with
// an error set is considered failed; its messages are whatever had been
// produced up to the failure.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// Chat is the append-only message history of one conversation run, together
// with its run variables and optional declared output schema.
//
// A Chat value is immutable: Append and WithErr return a new Chat and leave
// the receiver untouched. Intermediate snapshots handed to streaming consumers
// therefore remain stable while the run advances.
type Chat struct {
	messages     []Message
	vars         types.ContextVars
	outputSchema *jsonschema.Schema
	err          *Error
}

// Option configures a Chat at construction time.
type Option func(*Chat)

// WithVars sets the run variables available to tools and templates.
func WithVars(vars types.ContextVars) Option {
	return func(c *Chat) { c.vars = vars }
}

// WithOutputSchema declares the structured-output contract for the run.
func WithOutputSchema(schema *jsonschema.Schema) Option {
	return func(c *Chat) { c.outputSchema = schema }
}

// New creates a chat from the given initial messages.
func New(messages []Message, opts ...Option) *Chat {
	c := &Chat{
		messages: append([]Message(nil), messages...),
		vars:     types.ContextVars{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append returns a new Chat with the given messages appended. The receiver is
// not modified and shares no mutable state with the result.
func (c *Chat) Append(messages ...Message) *Chat {
	combined := make([]Message, 0, len(c.messages)+len(messages))
	combined = append(combined, c.messages...)
	combined = append(combined, messages...)
	return &Chat{
		messages:     combined,
		vars:         c.vars,
		outputSchema: c.outputSchema,
		err:          c.err,
	}
}

// WithErr returns a new Chat marked as failed with the given error.
func (c *Chat) WithErr(err error) *Chat {
	clone := c.Append()
	clone.err = &Error{Message: err.Error()}
	return clone
}

// Messages returns a copy of the message history.
func (c *Chat) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Len returns the number of messages in the history.
func (c *Chat) Len() int {
	return len(c.messages)
}

// Last returns the most recent message. ok is false for an empty chat.
func (c *Chat) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Vars returns the run variables. The map is shared with the chat; tools
// mutate it to persist state between rounds of the same run.
func (c *Chat) Vars() types.ContextVars {
	return c.vars
}

// OutputSchema returns the declared structured-output schema, or nil when
// none was declared.
func (c *Chat) OutputSchema() *jsonschema.Schema {
	return c.outputSchema
}

// Err returns the failure record, or nil for a healthy chat.
func (c *Chat) Err() *Error {
	return c.err
}

// Failed reports whether a failure has been recorded on the chat.
func (c *Chat) Failed() bool {
	return c.err != nil
}

// Transcript renders the history as "[role]: content" lines for logging and
// debugging.
func (c *Chat) Transcript() string {
	var sb strings.Builder
	for i, m := range c.messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s]: %s", m.Role, m.Content.String())
	}
	return sb.String()
}
