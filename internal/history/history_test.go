package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-adapter/internal/history"
)

func sys(c string) history.Turn  { return history.Turn{Role: history.RoleSystem, Content: c} }
func user(c string) history.Turn { return history.Turn{Role: history.RoleUser, Content: c} }
func asst(c string) history.Turn { return history.Turn{Role: history.RoleAssistant, Content: c} }

// =============================================================================
// TRUNCATE
// =============================================================================

func TestTruncate_KeepsSystemTurnFirst(t *testing.T) {
	turns := []history.Turn{sys("rules"), user("u1"), asst("a1"), user("u2"), asst("a2"), user("u3")}

	got := history.Truncate(turns, 3)

	assert.Equal(t, []history.Turn{sys("rules"), asst("a2"), user("u3")}, got)
}

func TestTruncate_WithoutSystemTurn(t *testing.T) {
	turns := []history.Turn{user("u1"), asst("a1"), user("u2")}

	got := history.Truncate(turns, 2)

	assert.Equal(t, []history.Turn{asst("a1"), user("u2")}, got)
}

func TestTruncate_Bounds(t *testing.T) {
	turns := []history.Turn{user("u1"), asst("a1"), user("u2")}

	tests := []struct {
		name      string
		maxLength int
		want      int
	}{
		{"zero is unbounded", 0, 3},
		{"negative is unbounded", -5, 3},
		{"exact length unchanged", 3, 3},
		{"larger than length unchanged", 10, 3},
		{"one keeps last", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, history.Truncate(turns, tt.maxLength), tt.want)
		})
	}
}

func TestTruncate_SystemOnlyWhenLimitIsOne(t *testing.T) {
	turns := []history.Turn{sys("rules"), user("u1"), asst("a1")}

	got := history.Truncate(turns, 1)

	assert.Equal(t, []history.Turn{sys("rules")}, got)
}

func TestTruncate_SystemTurnInMiddleMovesFirst(t *testing.T) {
	turns := []history.Turn{user("u1"), sys("rules"), asst("a1"), user("u2")}

	got := history.Truncate(turns, 2)

	assert.Equal(t, []history.Turn{sys("rules"), user("u2")}, got)
}

func TestTruncate_DoesNotAliasInput(t *testing.T) {
	turns := []history.Turn{user("u1"), asst("a1")}

	got := history.Truncate(turns, 0)
	got[0].Content = "changed"

	assert.Equal(t, "u1", turns[0].Content)
}

// =============================================================================
// GLOBAL CONTEXT
// =============================================================================

func TestMergeGlobalContext(t *testing.T) {
	tests := []struct {
		name  string
		turns []history.Turn
		text  string
		want  []history.Turn
	}{
		{
			name:  "empty text is a no-op",
			turns: []history.Turn{user("hi")},
			text:  "  ",
			want:  []history.Turn{user("hi")},
		},
		{
			name:  "creates system turn when absent",
			turns: []history.Turn{user("hi")},
			text:  "The party is in Waterdeep.",
			want:  []history.Turn{sys("The party is in Waterdeep."), user("hi")},
		},
		{
			name:  "prepends to existing system turn",
			turns: []history.Turn{sys("Be brief."), user("hi")},
			text:  "Setting: Waterdeep.",
			want:  []history.Turn{sys("Setting: Waterdeep.\n\nBe brief."), user("hi")},
		},
		{
			name:  "already present verbatim",
			turns: []history.Turn{sys("Setting: Waterdeep.\n\nBe brief."), user("hi")},
			text:  "Setting: Waterdeep.",
			want:  []history.Turn{sys("Setting: Waterdeep.\n\nBe brief."), user("hi")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, history.MergeGlobalContext(tt.turns, tt.text))
		})
	}
}

func TestMergeGlobalContext_BeforeTruncateKeepsContext(t *testing.T) {
	turns := []history.Turn{user("u1"), asst("a1"), user("u2"), asst("a2")}

	merged := history.MergeGlobalContext(turns, "ctx")
	got := history.Truncate(merged, 2)

	require.Len(t, got, 2)
	assert.Equal(t, sys("ctx"), got[0])
	assert.Equal(t, asst("a2"), got[1])
}

// =============================================================================
// FLATTEN
// =============================================================================

func TestFlatten_SkipsSystemTurns(t *testing.T) {
	turns := []history.Turn{sys("rules"), user("Hello"), asst("Hi there")}

	assert.Equal(t, "User: Hello\n\nAssistant: Hi there", history.Flatten(turns))
	assert.Equal(t, "", history.Flatten(nil))
}

func TestSystemContent(t *testing.T) {
	assert.Equal(t, "rules", history.SystemContent([]history.Turn{user("x"), sys("rules")}))
	assert.Equal(t, "", history.SystemContent([]history.Turn{user("x")}))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, history.RoleAssistant.Valid())
	assert.False(t, history.Role("tool").Valid())
}
