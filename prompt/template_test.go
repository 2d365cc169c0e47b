package prompt

import (
	"testing"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_NoBlocksBecomesUserMessage(t *testing.T) {
	tmpl := MustParse("plain", "Summarize {{.topic}} in one line.")

	msgs, err := tmpl.Render(types.ContextVars{"topic": "tides"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.User, msgs[0].Role)
	assert.Equal(t, "Summarize tides in one line.", msgs[0].Content.String())
}

func TestRender_Blocks(t *testing.T) {
	tmpl := MustParse("blocks", `
[[message system]]
You are a terse assistant.
[[/message]]

[[message user]]
Summarize {{.topic}}.
[[/message]]
`)

	msgs, err := tmpl.Render(types.ContextVars{"topic": "tides"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.System, msgs[0].Role)
	assert.Equal(t, "You are a terse assistant.", msgs[0].Content.String())
	assert.Equal(t, chat.User, msgs[1].Role)
	assert.Equal(t, "Summarize tides.", msgs[1].Content.String())
}

func TestRender_StrayTextIsAnError(t *testing.T) {
	tmpl := MustParse("stray", `
intro text that belongs to no message
[[message user]]
hello
[[/message]]
`)

	_, err := tmpl.Render(nil)
	assert.ErrorIs(t, err, ErrStrayText)
}

func TestRender_TrailingStrayTextIsAnError(t *testing.T) {
	tmpl := MustParse("stray", `
[[message user]]
hello
[[/message]]
dangling epilogue
`)

	_, err := tmpl.Render(nil)
	assert.ErrorIs(t, err, ErrStrayText)
}

func TestRender_UnclosedBlock(t *testing.T) {
	tmpl := MustParse("open", `[[message user]] hello`)

	_, err := tmpl.Render(nil)
	assert.ErrorIs(t, err, ErrUnclosedBlock)
}

func TestRender_ToolRoleNotRenderable(t *testing.T) {
	tmpl := MustParse("toolrole", "[[message tool]]x[[/message]]")

	_, err := tmpl.Render(nil)
	assert.ErrorContains(t, err, "not renderable")
}

func TestRender_MissingVariableIsAnError(t *testing.T) {
	tmpl := MustParse("strict", "Hello {{.name}}")

	_, err := tmpl.Render(types.ContextVars{})
	assert.Error(t, err)
}

func TestRender_AssistantAndDeveloperBlocks(t *testing.T) {
	tmpl := MustParse("roles", `
[[message developer]]
Prefer metric units.
[[/message]]
[[message assistant]]
Understood.
[[/message]]
`)

	msgs, err := tmpl.Render(nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.Developer, msgs[0].Role)
	assert.Equal(t, chat.Assistant, msgs[1].Role)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse("bad", "{{.unterminated")
	assert.Error(t, err)
}
