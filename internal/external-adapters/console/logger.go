// Package console implements interfaces.Logger for terminal output.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ochairo/plugship/internal/domain/interfaces"
)

// Logger writes "LEVEL message key=value ..." lines. Level tags are colored
// when the writer is a terminal.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	styles  map[string]lipgloss.Style
}

// NewLogger creates a logger writing to out; debug lines need verbose
func NewLogger(out io.Writer, verbose bool) *Logger {
	r := lipgloss.NewRenderer(out)
	return &Logger{
		out:     out,
		verbose: verbose,
		styles: map[string]lipgloss.Style{
			"DEBUG": r.NewStyle().Faint(true),
			"INFO":  r.NewStyle().Foreground(lipgloss.Color("12")),
			"WARN":  r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
			"ERROR": r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		},
	}
}

// Debug logs debug-level messages when verbose output is enabled
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	if l.verbose {
		l.log("DEBUG", msg, fields)
	}
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.log("INFO", msg, fields)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.log("WARN", msg, fields)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.log("ERROR", msg, fields)
}

func (l *Logger) log(level, msg string, fields []interfaces.Field) {
	var b strings.Builder
	b.WriteString(l.styles[level].Render(level))
	b.WriteString(strings.Repeat(" ", 6-len(level)))
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(formatValue(f.Value))
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

var _ interfaces.Logger = (*Logger)(nil)
