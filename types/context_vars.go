// Package types provides core type definitions used throughout the descant library.
package types

import json "github.com/goccy/go-json"

// ContextVars is a key-value store of variables shared by a conversation run.
// It feeds template rendering and gives tools a place to persist state between
// rounds of the same run.
//
// Common use cases include:
//   - Passing per-branch inputs into rendered prompt templates
//   - Sharing state between a tool call and a later round
//   - Providing environment-specific settings to a workflow
//
// Thread safety: ContextVars is a plain map and is not safe for concurrent
// modification. Each conversation run owns its copy; fan-out branches never
// share one instance.
type ContextVars map[string]any

// Merge returns a new ContextVars containing the receiver's entries overlaid
// with extra. Neither input is modified. A nil receiver is treated as empty.
func (cv ContextVars) Merge(extra ContextVars) ContextVars {
	merged := make(ContextVars, len(cv)+len(extra))
	for k, v := range cv {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy of the variables. Values are shared, the map
// itself is not.
func (cv ContextVars) Clone() ContextVars {
	if cv == nil {
		return ContextVars{}
	}
	cloned := make(ContextVars, len(cv))
	for k, v := range cv {
		cloned[k] = v
	}
	return cloned
}

// String returns a JSON representation of the variables, or the empty string
// if marshaling fails. Useful for logging and debugging.
func (cv ContextVars) String() string {
	jsonData, err := json.Marshal(cv)
	if err != nil {
		return ""
	}
	return string(jsonData)
}
