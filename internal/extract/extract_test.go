package extract_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-adapter/internal/extract"
)

const openAIResponse = `{"choices": [{"message": {"role": "assistant", "content": "hello"}}]}`

func TestExtract_OpenAIShape(t *testing.T) {
	got, err := extract.Extract([]byte(openAIResponse), "choices.0.message.content")

	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestExtract_IndexOutOfRange(t *testing.T) {
	_, err := extract.Extract([]byte(openAIResponse), "choices.1.message.content")

	var extErr *extract.Error
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "1", extErr.Segment)
	assert.Equal(t, "choices.1.message.content", extErr.Path)
}

func TestExtract_OtherProviderShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
		want string
	}{
		{
			name: "anthropic messages",
			body: `{"content": [{"type": "text", "text": "from claude"}]}`,
			path: "content.0.text",
			want: "from claude",
		},
		{
			name: "gemini candidates",
			body: `{"candidates": [{"content": {"parts": [{"text": "from gemini"}]}}]}`,
			path: "candidates.0.content.parts.0.text",
			want: "from gemini",
		},
		{
			name: "ollama chat",
			body: `{"message": {"content": "from ollama"}, "done": true}`,
			path: "message.content",
			want: "from ollama",
		},
		{
			name: "numeric value rendered as text",
			body: `{"result": {"score": 42}}`,
			path: "result.score",
			want: "42",
		},
		{
			name: "numeric key on an object",
			body: `{"results": {"0": "keyed"}}`,
			path: "results.0",
			want: "keyed",
		},
		{
			name: "surrounding whitespace in path",
			body: `{"a": {"b": "c"}}`,
			path: " a . b ",
			want: "c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extract.Extract([]byte(tt.body), tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
	}{
		{"missing key", `{"choices": []}`, "output"},
		{"empty string", `{"choices": [{"message": {"content": ""}}]}`, "choices.0.message.content"},
		{"whitespace string", `{"text": "  \n "}`, "text"},
		{"null value", `{"text": null}`, "text"},
		{"descend into scalar", `{"text": "abc"}`, "text.0"},
		{"wildcards are literal", `{"items": [{"t": "a"}]}`, "items.#.t"},
		{"query syntax is literal", `{"items": [{"t": "a"}]}`, `items.#(t=="a").t`},
		{"empty path", `{"a": "b"}`, ""},
		{"invalid body", `<html>502 Bad Gateway</html>`, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extract.Extract([]byte(tt.body), tt.path)
			assert.Empty(t, got)

			var extErr *extract.Error
			assert.True(t, errors.As(err, &extErr), "want *extract.Error, got %v", err)
		})
	}
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "0", "b"}, extract.Segments("a..0.b."))
	assert.Empty(t, extract.Segments("  "))
}
