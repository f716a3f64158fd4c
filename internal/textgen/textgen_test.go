package textgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Tasks []string `json:"tasks"`
	}

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", `{"tasks":["a","b"]}`, []string{"a", "b"}},
		{"fenced", "```json\n{\"tasks\":[\"a\"]}\n```", []string{"a"}},
		{"bare fence", "```\n{\"tasks\":[]}\n```", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			require.NoError(t, DecodeJSON(tt.in, &got))
			assert.Equal(t, tt.want, got.Tasks)
		})
	}

	var got payload
	assert.Error(t, DecodeJSON("not json", &got))
}

func TestGeneratorFunc(t *testing.T) {
	var seen Request
	g := GeneratorFunc(func(_ context.Context, req Request) (string, error) {
		seen = req
		return "ok", nil
	})
	out, err := g.Generate(context.Background(), Request{Prompt: "hi", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.True(t, seen.JSON)
}

func TestNewGenAI_RequiresKey(t *testing.T) {
	_, err := NewGenAI(context.Background(), "", "")
	assert.Error(t, err)
}
