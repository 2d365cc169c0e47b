package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextVars_String(t *testing.T) {
	tests := []struct {
		name string
		cv   ContextVars
		want string
	}{
		{
			name: "empty map",
			cv:   ContextVars{},
			want: "{}",
		},
		{
			name: "simple key-value",
			cv:   ContextVars{"key": "value"},
			want: `{"key":"value"}`,
		},
		{
			name: "nested structures",
			cv: ContextVars{
				"nested": map[string]any{
					"array": []any{1, 2, 3},
				},
			},
			want: `{"nested":{"array":[1,2,3]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cv.String())
		})
	}
}

func TestContextVars_Merge(t *testing.T) {
	base := ContextVars{"a": 1, "b": 2}
	merged := base.Merge(ContextVars{"b": 3, "c": 4})

	assert.Equal(t, ContextVars{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, ContextVars{"a": 1, "b": 2}, base, "merge must not modify the receiver")

	t.Run("nil receiver", func(t *testing.T) {
		var empty ContextVars
		assert.Equal(t, ContextVars{"x": "y"}, empty.Merge(ContextVars{"x": "y"}))
	})
}

func TestContextVars_Clone(t *testing.T) {
	orig := ContextVars{"a": 1}
	cloned := orig.Clone()
	cloned["a"] = 2

	assert.Equal(t, 1, orig["a"])

	var empty ContextVars
	assert.NotNil(t, empty.Clone())
}
