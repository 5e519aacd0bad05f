package formatter

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/yildizm/vftail/internal/monitor"
	"github.com/yildizm/vftail/internal/parser"
)

// Report is a point-in-time summary of a parser
type Report struct {
	Source       string             `json:"source"`
	GeneratedAt  time.Time          `json:"generated_at"`
	State        string             `json:"state"`
	HeaderParsed bool               `json:"header_parsed"`
	Counters     parser.Counters    `json:"counters"`
	LineTiming   monitor.TimerStats `json:"line_timing"`
	Cores        []CoreReport       `json:"cores"`
}

// CoreReport summarises the samples of one core
type CoreReport struct {
	Core       int           `json:"core"`
	Records    int           `json:"records"`
	Duplicates int           `json:"duplicates"`
	MinVoltage float64       `json:"min_voltage"`
	MaxVoltage float64       `json:"max_voltage"`
	MinClock   float64       `json:"min_clock"`
	MaxClock   float64       `json:"max_clock"`
	Last       *parser.Entry `json:"last,omitempty"`
	Peak       *parser.Entry `json:"peak,omitempty"`
	// Curve holds the highest clock seen at each voltage, by voltage.
	Curve   []parser.Entry `json:"curve"`
	Entries []parser.Entry `json:"-"`
}

// ParserSource is the read side of a parser that a report needs
type ParserSource interface {
	State() parser.State
	IsHeaderParsed() bool
	Counters() parser.Counters
	Stats() map[int]parser.CoreStats
	GetPerCoreDataSource() map[int]parser.FeedView
	LineTiming() monitor.TimerStats
}

// BuildReport snapshots p
func BuildReport(source string, p ParserSource) *Report {
	r := &Report{
		Source:       source,
		GeneratedAt:  time.Now(),
		State:        p.State().String(),
		HeaderParsed: p.IsHeaderParsed(),
		Counters:     p.Counters(),
		LineTiming:   p.LineTiming(),
	}

	feeds := p.GetPerCoreDataSource()
	stats := p.Stats()
	cores := make([]int, 0, len(feeds))
	for core := range feeds {
		cores = append(cores, core)
	}
	slices.Sort(cores)

	for _, core := range cores {
		r.Cores = append(r.Cores, buildCoreReport(core, stats[core], feeds[core].Snapshot()))
	}
	return r
}

func buildCoreReport(core int, stats parser.CoreStats, entries []parser.Entry) CoreReport {
	cr := CoreReport{
		Core:       core,
		Records:    stats.RecordCount,
		Duplicates: stats.DuplicateCount,
		Entries:    entries,
	}
	if len(entries) == 0 {
		return cr
	}

	cr.MinVoltage, cr.MinClock = math.Inf(1), math.Inf(1)
	cr.MaxVoltage, cr.MaxClock = math.Inf(-1), math.Inf(-1)
	peak := make(map[float64]float64)
	for _, e := range entries {
		cr.MinVoltage = math.Min(cr.MinVoltage, e.Voltage)
		cr.MaxVoltage = math.Max(cr.MaxVoltage, e.Voltage)
		cr.MinClock = math.Min(cr.MinClock, e.Clock)
		cr.MaxClock = math.Max(cr.MaxClock, e.Clock)
		if c, ok := peak[e.Voltage]; !ok || e.Clock > c {
			peak[e.Voltage] = e.Clock
		}
	}

	last := entries[len(entries)-1]
	cr.Last = &last

	cr.Curve = make([]parser.Entry, 0, len(peak))
	for v, c := range peak {
		cr.Curve = append(cr.Curve, parser.Entry{Voltage: v, Clock: c})
	}
	cr.Curve = parser.SortEntries(cr.Curve)

	// Highest clock, lowest voltage on ties.
	best := cr.Curve[0]
	for _, e := range cr.Curve[1:] {
		if e.Clock > best.Clock {
			best = e
		}
	}
	cr.Peak = &best
	return cr
}

// StatusLine renders the one-line parser status shown while following
func StatusLine(state parser.State, c parser.Counters) string {
	return fmt.Sprintf("[%s] Processed: %d Success: %d Error: %d", state, c.ProcessedLines, c.SuccessRecords, c.ErrorRecords)
}

// formatNumber formats numbers with commas for readability
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + addCommas(s[1:])
	}
	return addCommas(s)
}

// addCommas adds commas to number strings
func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}

func formatEntry(e parser.Entry) string {
	return fmt.Sprintf("%.3f V @ %.0f MHz", e.Voltage, e.Clock)
}
