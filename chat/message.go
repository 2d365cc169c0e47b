package chat

import (
	"time"

	"github.com/go-openapi/strfmt"
)

// ToolCall is a request from the model to invoke a named tool. The ID is
// opaque and provider-assigned; Arguments is the serialized (JSON) argument
// payload exactly as the model emitted it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in a conversation. Messages are immutable once
// constructed; a conversation only ever appends new ones.
//
// ToolCalls is only set on assistant messages that request tool invocations.
// ToolCallID is only set on tool-result messages and links the result back to
// the originating call.
type Message struct {
	Role       Role            `json:"role"`
	Content    Content         `json:"content"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Timestamp  strfmt.DateTime `json:"timestamp,omitempty"`
}

// HasToolCalls reports whether the message carries tool call requests. A
// conversation round terminates exactly when the latest assistant message
// carries none.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// SystemMessage returns a system message with the given text content.
func SystemMessage(content string) Message {
	return newMessage(System, TextContent(content))
}

// DeveloperMessage returns a developer message with the given text content.
func DeveloperMessage(content string) Message {
	return newMessage(Developer, TextContent(content))
}

// UserMessage returns a user message with the given text content.
func UserMessage(content string) Message {
	return newMessage(User, TextContent(content))
}

// AssistantMessage returns an assistant message with the given text content.
func AssistantMessage(content string) Message {
	return newMessage(Assistant, TextContent(content))
}

// ToolCallMessage returns an assistant message that requests the given tool
// invocations.
func ToolCallMessage(calls ...ToolCall) Message {
	msg := newMessage(Assistant, Content{})
	msg.ToolCalls = calls
	return msg
}

// ToolMessage returns a tool-result message carrying the originating call id
// and the serialized result payload.
func ToolMessage(toolCallID, content string) Message {
	msg := newMessage(Tool, TextContent(content))
	msg.ToolCallID = toolCallID
	return msg
}

func newMessage(role Role, content Content) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}
