package chat

// Role identifies the author of a message in a conversation.
type Role string

const (
	// System carries standing instructions for the model.
	System Role = "system"
	// User carries input authored by the calling application or end user.
	User Role = "user"
	// Assistant carries model responses, including tool call requests.
	Assistant Role = "assistant"
	// Tool carries the serialized result of a tool invocation.
	Tool Role = "tool"
	// Developer carries developer-authored instructions, where the provider
	// distinguishes them from system instructions.
	Developer Role = "developer"
)

// Valid reports whether the role is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case System, User, Assistant, Tool, Developer:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
