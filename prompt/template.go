// Package prompt renders message templates for a conversation's opening round.
// A template is plain text/template source; its rendered output is either a
// single user message or a sequence of explicit message blocks:
//
//	[[message system]]
//	You are a terse assistant.
//	[[/message]]
//	[[message user]]
//	Summarize {{.topic}}.
//	[[/message]]
//
// When any block is present, text outside the blocks must be whitespace only.
// Rendering is strict: referencing an unset variable is an error.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/pkg/stdx"
	"github.com/descant-dev/descant/types"
)

// ErrStrayText is returned when a rendered template mixes message blocks with
// non-whitespace text outside them.
var ErrStrayText = fmt.Errorf("text outside message blocks")

// ErrUnclosedBlock is returned when a message block has no closing marker.
var ErrUnclosedBlock = fmt.Errorf("unclosed message block")

var openMarker = regexp.MustCompile(`\[\[message ([a-z]+)\]\]`)

const closeMarker = "[[/message]]"

// Template is a parsed message template.
type Template struct {
	name string
	tmpl *template.Template
}

// Parse compiles template source under the given name.
func Parse(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// MustParse wraps Parse and panics on error. Intended for package-level
// template declarations.
func MustParse(name, text string) *Template {
	return stdx.Must1(Parse(name, text))
}

// Name returns the template's name.
func (t *Template) Name() string { return t.name }

// Render executes the template with the given variables and splits the output
// into messages. Without message blocks the whole rendering becomes one user
// message.
func (t *Template) Render(vars types.ContextVars) ([]chat.Message, error) {
	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, map[string]any(vars)); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", t.name, err)
	}
	msgs, err := splitMessages(buf.String())
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.name, err)
	}
	return msgs, nil
}

func splitMessages(rendered string) ([]chat.Message, error) {
	matches := openMarker.FindAllStringSubmatchIndex(rendered, -1)
	if len(matches) == 0 {
		return []chat.Message{chat.UserMessage(strings.TrimSpace(rendered))}, nil
	}

	var msgs []chat.Message
	cursor := 0
	for _, m := range matches {
		if m[0] < cursor {
			// opener inside the previous block's body
			continue
		}
		if strings.TrimSpace(rendered[cursor:m[0]]) != "" {
			return nil, ErrStrayText
		}

		role := chat.Role(rendered[m[2]:m[3]])
		end := strings.Index(rendered[m[1]:], closeMarker)
		if end < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnclosedBlock, role)
		}
		body := strings.TrimSpace(rendered[m[1] : m[1]+end])
		cursor = m[1] + end + len(closeMarker)

		msg, err := messageFor(role, body)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if strings.TrimSpace(rendered[cursor:]) != "" {
		return nil, ErrStrayText
	}
	return msgs, nil
}

func messageFor(role chat.Role, body string) (chat.Message, error) {
	switch role {
	case chat.System:
		return chat.SystemMessage(body), nil
	case chat.Developer:
		return chat.DeveloperMessage(body), nil
	case chat.User:
		return chat.UserMessage(body), nil
	case chat.Assistant:
		return chat.AssistantMessage(body), nil
	default:
		return chat.Message{}, fmt.Errorf("message block role %q is not renderable", role)
	}
}
