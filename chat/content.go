// Package chat provides the conversation data model: roles, message content
// variants, tool call requests, and the immutable append-only Chat history.
package chat

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var jsonNull = []byte(`null`)

// Content represents either plain text content or a collection of typed
// content parts. It serializes as a bare JSON string when only Text is set,
// and as an array of typed part objects otherwise.
type Content struct {
	Text  string // plain text content, used when the message is just text
	Parts []Part // typed content parts (text, thinking)
	_     struct{}
}

// TextContent returns a Content holding plain text.
func TextContent(text string) Content {
	return Content{Text: text}
}

// Empty reports whether the content carries neither text nor parts.
func (c Content) Empty() bool {
	return c.Text == "" && len(c.Parts) == 0
}

// String flattens the content to text. Part contents are concatenated with
// newlines; thinking parts are skipped.
func (c Content) String() string {
	if len(c.Parts) == 0 {
		return c.Text
	}
	var out string
	for _, part := range c.Parts {
		tp, ok := part.(TextPart)
		if !ok {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += tp.Text
	}
	return out
}

// MarshalJSON implements json.Marshaler. Returns the Text as a JSON string if
// it is non-empty, otherwise the Parts as a JSON array, or null when both are
// empty.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Text != "" {
		return json.Marshal(c.Text)
	}
	if c.Parts == nil {
		return jsonNull, nil
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON implements json.Unmarshaler. Handles a bare string, null, or
// an array of typed part objects.
func (c *Content) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	jv := gjson.ParseBytes(input)
	switch {
	case jv.Type == gjson.Null:
		*c = Content{}
		return nil
	case jv.Type == gjson.String:
		*c = Content{Text: jv.String()}
		return nil
	case jv.IsArray():
		aj := jv.Array()
		parts := make([]Part, len(aj))
		for idx, ajv := range aj {
			switch tpe := ajv.Get("type").String(); tpe {
			case "text":
				parts[idx] = TextPart{Text: ajv.Get("text").String()}
			case "thinking":
				parts[idx] = ThinkingPart{Thinking: ajv.Get("thinking").String()}
			default:
				return fmt.Errorf("unknown content part type %q at %d", tpe, idx)
			}
		}
		*c = Content{Parts: parts}
		return nil
	default:
		return fmt.Errorf("invalid content: %s", input)
	}
}

// Part is one element of multi-part message content.
type Part interface {
	part()
}

// TextPart is a plain text content part.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) part() {}

// MarshalJSON adds the "type" discriminator to the part object.
func (p TextPart) MarshalJSON() ([]byte, error) {
	out, err := sjson.Set(`{"type":"text"}`, "text", p.Text)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// ThinkingPart carries model reasoning that is not part of the visible reply.
type ThinkingPart struct {
	Thinking string `json:"thinking"`
}

func (ThinkingPart) part() {}

// MarshalJSON adds the "type" discriminator to the part object.
func (p ThinkingPart) MarshalJSON() ([]byte, error) {
	out, err := sjson.Set(`{"type":"thinking"}`, "thinking", p.Thinking)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
