package tui

// TUI package provides terminal helpers for the chat-adapter CLI:
//   - Colored status lines
//   - Line prompts and hidden API-key input
//   - Terminal detection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// =============================================================================
// COLORS
// =============================================================================

var (
	header  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgBlue)
	warn    = color.New(color.FgYellow, color.Bold)
	fail    = color.New(color.FgRed)
	step    = color.New(color.FgCyan)
	faint   = color.New(color.Faint)
)

// =============================================================================
// PRINT FUNCTIONS
// =============================================================================

// PrintHeader prints a styled section header.
func PrintHeader(title string) {
	line := strings.Repeat("=", 40)
	header.Fprintf(color.Output, "\n%s\n       %s\n%s\n\n", line, title, line)
}

// PrintSuccess prints a success message with green [OK] prefix.
func PrintSuccess(msg string) {
	fmt.Fprintf(color.Output, "%s %s\n", success.Sprint("[OK]"), msg)
}

// PrintInfo prints an info message with blue [INFO] prefix.
func PrintInfo(msg string) {
	fmt.Fprintf(color.Output, "%s %s\n", info.Sprint("[INFO]"), msg)
}

// PrintWarn prints a warning message with yellow [WARN] prefix.
func PrintWarn(msg string) {
	fmt.Fprintf(color.Output, "%s %s\n", warn.Sprint("[WARN]"), msg)
}

// PrintError prints an error message with red [ERROR] prefix.
func PrintError(msg string) {
	fmt.Fprintf(color.Output, "%s %s\n", fail.Sprint("[ERROR]"), msg)
}

// PrintStep prints a step/action message with cyan >>> prefix.
func PrintStep(msg string) {
	fmt.Fprintf(color.Output, "%s %s\n", step.Sprint(">>>"), msg)
}

// Faint renders s dimmed.
func Faint(s string) string { return faint.Sprint(s) }

// Accent renders s in the header color.
func Accent(s string) string { return header.Sprint(s) }

// =============================================================================
// PROMPTS
// =============================================================================

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// LineReader reads trimmed lines from an input stream.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// Prompt prints prompt to out and reads one line. It returns io.EOF once the
// input is exhausted and nothing was typed.
func (lr *LineReader) Prompt(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := lr.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptString prompts for a string input. Returns empty if skipped.
func PromptString(prompt string) string {
	s, _ := NewLineReader(os.Stdin).Prompt(os.Stdout, prompt)
	return s
}

// PromptPassword prompts for a password (hidden input).
func PromptPassword(prompt string) string {
	fmt.Print(prompt)

	if IsInteractive() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println() // New line after hidden input
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
