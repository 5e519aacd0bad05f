package formatter

import (
	"fmt"
	"strings"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(report *Report) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# VF Summary\n\n")
	if report.Source != "" {
		fmt.Fprintf(&b, "Source: `%s`\n\n", report.Source)
	}
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	f.writeSummaryTable(&b, report)

	if !report.HeaderParsed {
		b.WriteString("> No header line matched the configured patterns.\n")
		return []byte(b.String()), nil
	}

	f.writeCoreTable(&b, report.Cores)
	for _, core := range report.Cores {
		f.writeCurve(&b, core)
	}

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeSummaryTable(b *strings.Builder, report *Report) {
	c := report.Counters
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(b, "| State | %s |\n", report.State)
	fmt.Fprintf(b, "| Processed Lines | %s |\n", formatNumber(c.ProcessedLines))
	fmt.Fprintf(b, "| Accepted | %s |\n", formatNumber(c.SuccessRecords))
	fmt.Fprintf(b, "| Rejected | %s |\n", formatNumber(c.ErrorRecords))
	fmt.Fprintf(b, "| Cores | %d |\n\n", len(report.Cores))
}

func (f *markdownFormatter) writeCoreTable(b *strings.Builder, cores []CoreReport) {
	b.WriteString("## Cores\n\n")
	b.WriteString("| Core | Samples | Duplicates | Voltage (V) | Clock (MHz) | Peak |\n")
	b.WriteString("|------|---------|------------|-------------|-------------|------|\n")
	for _, core := range cores {
		if core.Last == nil {
			fmt.Fprintf(b, "| %d | 0 | %d | - | - | - |\n", core.Core, core.Duplicates)
			continue
		}
		fmt.Fprintf(b, "| %d | %d | %d | %.3f - %.3f | %.0f - %.0f | %s |\n",
			core.Core, core.Records, core.Duplicates,
			core.MinVoltage, core.MaxVoltage, core.MinClock, core.MaxClock,
			formatEntry(*core.Peak))
	}
	b.WriteString("\n")
}

// writeCurve lists the highest clock reached at each voltage
func (f *markdownFormatter) writeCurve(b *strings.Builder, core CoreReport) {
	if len(core.Curve) == 0 {
		return
	}
	fmt.Fprintf(b, "### Core %d curve\n\n", core.Core)
	b.WriteString("| Voltage (V) | Max Clock (MHz) |\n")
	b.WriteString("|-------------|-----------------|\n")
	for _, e := range core.Curve {
		fmt.Fprintf(b, "| %.3f | %.0f |\n", e.Voltage, e.Clock)
	}
	b.WriteString("\n")
}
