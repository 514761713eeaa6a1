package payload_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-adapter/internal/history"
	"github.com/compresr/chat-adapter/internal/payload"
)

var testFallback = payload.Fallback{
	Model:    "test-model",
	Messages: []history.Turn{{Role: history.RoleUser, Content: "Hello"}},
}

// =============================================================================
// PARSE STAGES
// =============================================================================

func TestParse_StrictSucceeds(t *testing.T) {
	res := payload.Parse("\ufeff  {\"model\": \"m\", \"n\": 1}\n", testFallback)

	assert.Equal(t, payload.StageStrict, res.Stage)
	assert.False(t, res.Fallback())
	assert.NoError(t, res.Err)
	assert.JSONEq(t, `{"model": "m", "n": 1}`, string(res.Body))
}

func TestParse_RawNewlineRecoveredByRepair(t *testing.T) {
	filled := "{\"model\": \"m\", \"messages\": [{\"role\": \"system\", \"content\": \"line one\nline two\"}]}"

	res := payload.Parse(filled, testFallback)

	require.Equal(t, payload.StageRepaired, res.Stage)
	obj, err := payload.Decode(res.Body)
	require.NoError(t, err)
	msg := obj["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "line one\nline two", msg["content"])
	assert.Contains(t, string(res.Body), `line one\nline two`)
}

func TestParse_CommonAuthoringMistakes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trailing commas",
			input: `{"model": "m", "messages": [1, 2, ], }`,
			want:  `{"model": "m", "messages": [1, 2]}`,
		},
		{
			name:  "windows paths",
			input: `{"model": "m", "path": "C:\Users\gm"}`,
			want:  `{"model": "m", "path": "C:\\Users\\gm"}`,
		},
		{
			name:  "crlf inside string",
			input: "{\"model\": \"m\", \"prompt\": \"a\r\nb\"}",
			want:  `{"model": "m", "prompt": "a\nb"}`,
		},
		{
			name:  "raw tab inside string",
			input: "{\"model\": \"m\", \"prompt\": \"a\tb\"}",
			want:  `{"model": "m", "prompt": "a\tb"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := payload.Parse(tt.input, testFallback)
			require.Equal(t, payload.StageRepaired, res.Stage, "err: %v", res.Err)
			assert.JSONEq(t, tt.want, string(res.Body))
		})
	}
}

func TestParse_FallbackGuarantee(t *testing.T) {
	inputs := []string{
		"",
		"not json at all",
		`{"model": "{{Model}}", "messages": {{MessageHistory}}}`,
		`["an", "array"]`,
		`{"unterminated": "value`,
		`"just a string"`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			var res payload.Result
			require.NotPanics(t, func() { res = payload.Parse(in, testFallback) })

			assert.True(t, res.Fallback())
			assert.Error(t, res.Err)

			var obj map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(res.Body, &obj))
			assert.Len(t, obj, 2)
			assert.JSONEq(t, `"test-model"`, string(obj["model"]))
			assert.JSONEq(t, `[{"role":"user","content":"Hello"}]`, string(obj["messages"]))
		})
	}
}

func TestParse_FallbackWithNilMessages(t *testing.T) {
	res := payload.Parse("nope", payload.Fallback{Model: "m"})

	assert.JSONEq(t, `{"model": "m", "messages": []}`, string(res.Body))
}

// =============================================================================
// INDIVIDUAL PASSES
// =============================================================================

func TestNormalizeLineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\nc", payload.NormalizeLineEndings("a\r\nb\rc"))
}

func TestEscapeStrayBackslashes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"a\nb"`, `"a\nb"`},
		{`"tab\t quote\" slash\/"`, `"tab\t quote\" slash\/"`},
		{`"\\already"`, `"\\already"`},
		{`"\u00e9"`, `"\u00e9"`},
		{`"\u00zz"`, `"\\u00zz"`},
		{`"C:\docs"`, `"C:\\docs"`},
		{`"end\`, `"end\\`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, payload.EscapeStrayBackslashes(tt.in), tt.in)
	}
}

func TestEscapeControlChars_OnlyInsideStrings(t *testing.T) {
	in := "{\n\t\"a\": \"x\ny\",\n\t\"b\": \"\x01\"\n}"

	got := payload.EscapeControlChars(in)

	assert.Equal(t, "{\n\t\"a\": \"x\\ny\",\n\t\"b\": \"\\u0001\"\n}", got)
}

func TestCollapseColonWhitespace(t *testing.T) {
	in := `{"a"  :  "b : c", "d"	:1}`

	assert.Equal(t, `{"a":"b : c", "d":1}`, payload.CollapseColonWhitespace(in))
}

func TestRemoveTrailingCommas(t *testing.T) {
	in := `{"a": [1, 2,  ], "b": "x,}", }`

	assert.Equal(t, `{"a": [1, 2  ], "b": "x,}" }`, payload.RemoveTrailingCommas(in))
}

func TestPasses_Order(t *testing.T) {
	names := make([]string, 0, len(payload.Passes))
	for _, p := range payload.Passes {
		names = append(names, p.Name)
	}

	assert.Equal(t, []string{
		"normalize_line_endings",
		"escape_stray_backslashes",
		"escape_control_chars",
		"collapse_colon_whitespace",
		"remove_trailing_commas",
	}, names)
}
