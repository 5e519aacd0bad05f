package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter
func NewTerminal(color, emoji bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = emoji
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(report *Report) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b, report)
	f.writeStatistics(&b, report)

	if !report.HeaderParsed {
		symbol := termfmt.GetEmoji("warning", f.opts)
		b.WriteString(symbol + " No header line matched the configured patterns\n")
		return []byte(b.String()), nil
	}

	f.writeCores(&b, report.Cores)
	return []byte(b.String()), nil
}

// writeHeader writes a boxed title
func (f *terminalFormatter) writeHeader(b *strings.Builder, report *Report) {
	header := "VF Summary"
	if report.Source != "" {
		header += ": " + report.Source
	}
	width := len([]rune(header))

	b.WriteString("╔" + strings.Repeat("═", width+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", width+2) + "╝\n\n")
}

// writeStatistics writes line counters as a tree
func (f *terminalFormatter) writeStatistics(b *strings.Builder, report *Report) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Statistics\n")

	c := report.Counters
	data := c.SuccessRecords + c.ErrorRecords
	rate := 0.0
	if data > 0 {
		rate = float64(c.SuccessRecords) / float64(data)
	}

	items := []termfmt.TreeItem{
		{Label: "State", Value: report.State},
		{Label: "Processed Lines", Value: formatNumber(c.ProcessedLines)},
		{Label: "Accepted", Value: fmt.Sprintf("%s (%.1f%%)", formatNumber(c.SuccessRecords), rate*100)},
		{Label: "Rejected", Value: formatNumber(c.ErrorRecords)},
		{Label: "Acceptance", Value: termfmt.CreateConfidenceBar(rate, f.opts)},
		{Label: "Cores", Value: fmt.Sprintf("%d", len(report.Cores)), Last: true},
	}

	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

// writeCores writes one subtree per core
func (f *terminalFormatter) writeCores(b *strings.Builder, cores []CoreReport) {
	symbol := termfmt.GetEmoji("summary", f.opts)
	b.WriteString(symbol + " Cores\n")

	items := make([]termfmt.TreeItem, 0, len(cores))
	for i, core := range cores {
		item := termfmt.TreeItem{
			Label: fmt.Sprintf("Core %d", core.Core),
			Value: fmt.Sprintf("%d samples, %d duplicates", core.Records, core.Duplicates),
			Last:  i == len(cores)-1,
		}
		if core.Last != nil {
			item.Children = []termfmt.TreeItem{
				{Label: "Voltage", Value: fmt.Sprintf("%.3f - %.3f V", core.MinVoltage, core.MaxVoltage)},
				{Label: "Clock", Value: fmt.Sprintf("%.0f - %.0f MHz", core.MinClock, core.MaxClock)},
				{Label: "Peak", Value: formatEntry(*core.Peak)},
				{Label: "Latest", Value: formatEntry(*core.Last), Last: true},
			}
		}
		items = append(items, item)
	}

	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
}
