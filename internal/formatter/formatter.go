package formatter

import (
	"fmt"
	"strings"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// Formats lists the supported output formats
var Formats = []string{"text", "json", "csv", "markdown"}

// New returns the formatter for format. color and emoji only affect text.
func New(format string, color, emoji bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text", "terminal":
		return NewTerminal(color, emoji), nil
	case "json":
		return NewJSON(), nil
	case "csv":
		return NewCSV(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (use %s)", format, strings.Join(Formats, ", "))
	}
}
