// Package ui is the live terminal dashboard for a followed sensor log.
package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/vftail/internal/chart"
	"github.com/yildizm/vftail/internal/emoji"
	"github.com/yildizm/vftail/internal/formatter"
	"github.com/yildizm/vftail/internal/monitor"
	"github.com/yildizm/vftail/internal/parser"
	"github.com/yildizm/vftail/internal/session"
	"github.com/yildizm/vftail/internal/ui/components"
)

// Options configures the dashboard
type Options struct {
	// Source is the followed file, shown in the title.
	Source string

	// Visibility is shared with the chart refresher. Nil creates a private one.
	Visibility *chart.Visibility

	// ChartPath is shown in the footer when a chart file is being written.
	ChartPath string

	Color bool
}

const (
	sparkWidth = 16
	ratePoints = 120
)

// Model is the dashboard state
type Model struct {
	ctx     context.Context
	session *session.Session
	bridge  *Bridge
	opts    Options
	vis     *chart.Visibility
	styles  *Styles
	help    help.Model

	width    int
	height   int
	cursor   int
	showPlot bool
	quitting bool

	// rate samples the processed line count on every tick. It is reset
	// whenever the session builds a new parser.
	rate    *monitor.RateSampler
	rateGen int

	lastReject *rejectMsg
	message    string
	actionErr  error
}

// NewModel creates a dashboard for s. The bridge must be attached to the
// session so parser events reach the model.
func NewModel(ctx context.Context, s *session.Session, bridge *Bridge, opts Options) *Model {
	vis := opts.Visibility
	if vis == nil {
		vis = chart.NewVisibility()
	}
	return &Model{
		ctx:      ctx,
		session:  s,
		bridge:   bridge,
		opts:     opts,
		vis:      vis,
		styles:   GetStyles(opts.Color),
		help:     help.New(),
		showPlot: true,
		rate:     monitor.NewRateSampler("lines", ratePoints),
		rateGen:  s.Generation(),
	}
}

// Run shows the dashboard until the user quits or ctx is cancelled
func Run(ctx context.Context, s *session.Session, opts Options) error {
	bridge := NewBridge(64)
	s.OnAttach(bridge.Attach)

	m := NewModel(ctx, s, bridge, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// Init starts the refresh tick and the event bridge
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.bridge.wait())
}

// Update handles messages and key presses
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tickMsg:
		m.sampleRate(time.Time(msg))
		return m, tick()

	case stateMsg:
		if msg.state == parser.StateRunning {
			m.actionErr = nil
		}
		return m, m.bridge.wait()

	case rejectMsg:
		m.lastReject = &msg
		return m, m.bridge.wait()

	case actionDoneMsg:
		m.actionErr = msg.err
		m.message = msg.action
		if msg.err == nil && msg.action == "reloaded" {
			m.lastReject = nil
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cores := m.cores()

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(cores)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Toggle):
		if core, ok := m.selected(cores); ok {
			m.vis.Toggle(core)
		}
	case key.Matches(msg, keys.Solo):
		if core, ok := m.selected(cores); ok {
			m.vis.Solo(core, cores)
		}
	case key.Matches(msg, keys.Exclude):
		if core, ok := m.selected(cores); ok {
			m.vis.Exclude(core)
		}
	case key.Matches(msg, keys.ShowAll):
		m.vis.ShowAll()
	case key.Matches(msg, keys.Plot):
		m.showPlot = !m.showPlot
	case key.Matches(msg, keys.Run):
		return m, m.toggleRun()
	case key.Matches(msg, keys.Reload):
		return m, m.reload()
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// toggleRun and reload run off the update loop: stopping waits for the
// parser, which may be waiting to deliver an event to this loop.
func (m *Model) toggleRun() tea.Cmd {
	return func() tea.Msg {
		wasRunning := m.session.Running()
		err := m.session.Toggle(m.ctx)
		action := "started"
		if wasRunning {
			action = "stopped"
		}
		return actionDoneMsg{action: action, err: err}
	}
}

func (m *Model) reload() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: "reloaded", err: m.session.Reload(m.ctx)}
	}
}

func (m *Model) sampleRate(now time.Time) {
	if gen := m.session.Generation(); gen != m.rateGen {
		m.rate = monitor.NewRateSampler("lines", ratePoints)
		m.rateGen = gen
	}
	if p := m.session.Parser(); p != nil {
		m.rate.Sample(now, p.Counters().ProcessedLines)
	}
}

func (m *Model) selected(cores []int) (int, bool) {
	if len(cores) == 0 {
		return 0, false
	}
	return cores[min(m.cursor, len(cores)-1)], true
}

// cores returns the cores of the current parser in ascending order
func (m *Model) cores() []int {
	p := m.session.Parser()
	if p == nil {
		return nil
	}
	sources := p.GetPerCoreDataSource()
	cores := make([]int, 0, len(sources))
	for core := range sources {
		cores = append(cores, core)
	}
	slices.Sort(cores)
	return cores
}

// View renders the dashboard
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	p := m.session.Parser()
	sections := []string{m.renderTitle(p)}

	if p == nil {
		sections = append(sections, m.styles.Muted.Render("No parser running"))
	} else {
		sections = append(sections, m.renderCounters(p))
		if !p.IsHeaderParsed() {
			sections = append(sections, m.styles.Warning.Render(emoji.GetEmoji("warning")+" Waiting for a header line"))
		} else {
			sections = append(sections, m.renderCores(p))
			if m.showPlot {
				sections = append(sections, m.renderPlot(p))
			}
		}
	}

	if footer := m.renderFooter(); footer != "" {
		sections = append(sections, footer)
	}
	sections = append(sections, m.help.View(keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTitle(p *parser.Parser) string {
	title := m.styles.Title.Render("vftail " + m.opts.Source)
	if p == nil {
		return title
	}

	state := p.State()
	status := formatter.StatusLine(state, p.Counters())
	switch state {
	case parser.StateRunning:
		status = m.styles.Success.Render(emoji.GetEmoji("running") + " " + status)
	case parser.StateStopped:
		status = m.styles.Muted.Render(emoji.GetEmoji("stopped") + " " + status)
	default:
		status = m.styles.Muted.Render(emoji.GetEmoji("idle") + " " + status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, status)
}

func (m *Model) renderCounters(p *parser.Parser) string {
	c := p.Counters()
	d := components.NewStatsDashboard(4)

	cards := []*components.StatsCard{
		components.NewStatsCard("Processed", fmt.Sprintf("%d", c.ProcessedLines)),
		components.NewStatsCard("Accepted", fmt.Sprintf("%d", c.SuccessRecords)).SetStatus("success"),
		components.NewStatsCard("Rejected", fmt.Sprintf("%d", c.ErrorRecords)),
		components.NewStatsCard("Lines/s", fmt.Sprintf("%.1f", p.LinesPerSecond())),
	}
	if c.ErrorRecords > 0 {
		cards[2].SetStatus("error")
	}
	for _, card := range cards {
		card.Color = m.opts.Color
		d.AddCard(card)
	}

	series := m.rate.Series()
	if series.Size() == 0 {
		return d.Render()
	}
	agg := series.Aggregates()
	trend := fmt.Sprintf("Rate %s avg %.1f p95 %.1f lines/s",
		components.Sparkline(series.Values(sparkWidth), sparkWidth), agg.Avg, agg.P95)
	return lipgloss.JoinVertical(lipgloss.Left, d.Render(), m.styles.Muted.Render(trend))
}

func (m *Model) renderCores(p *parser.Parser) string {
	sources := p.GetPerCoreDataSource()
	stats := p.Stats()
	cores := m.cores()

	var b strings.Builder
	b.WriteString(m.styles.Header.Render(fmt.Sprintf("  %-3s %-8s %8s %6s  %-22s %s", "", "Core", "Samples", "Dups", "Last", "Clock trend")))
	for i, core := range cores {
		marker := emoji.GetEmoji("visible")
		if !m.vis.Visible(core) {
			marker = emoji.GetEmoji("hidden")
		}

		feed := sources[core]
		last := "-"
		var clocks []float64
		if n := feed.Len(); n > 0 {
			last = fmt.Sprintf("%.3f V @ %.0f MHz", feed.At(n-1).Voltage, feed.At(n-1).Clock)
			for _, e := range feed.Since(max(n-sparkWidth, 0)) {
				clocks = append(clocks, e.Clock)
			}
		}

		cursor := "  "
		if i == min(m.cursor, len(cores)-1) {
			cursor = "> "
		}
		row := fmt.Sprintf("%s%-3s %-8s %8d %6d  %-22s %s",
			cursor, marker, fmt.Sprintf("Core %d", core),
			stats[core].RecordCount, stats[core].DuplicateCount,
			last, components.Sparkline(clocks, sparkWidth))
		if cursor == "> " {
			row = m.styles.Selected.Render(row)
		}
		b.WriteString("\n" + row)
	}
	return m.styles.Panel.Render(b.String())
}

func (m *Model) renderPlot(p *parser.Parser) string {
	series := chart.Collect(p.GetPerCoreDataSource(), m.vis)
	scatter := make([]components.ScatterSeries, 0, len(series))
	for _, s := range series {
		pts := make([][2]float64, len(s.Entries))
		for i, e := range s.Entries {
			pts[i] = [2]float64{e.Voltage, e.Clock}
		}
		scatter = append(scatter, components.ScatterSeries{Glyph: rune('0' + s.Core%10), Points: pts})
	}

	width := max(m.width-4, 40)
	height := max(m.height-len(m.cores())-18, 8)
	plot := components.Scatter(scatter, width, height, "%.3f", "%.0f")
	if plot == "" {
		plot = m.styles.Muted.Render("No samples to plot")
	}
	title := m.styles.Header.Render(emoji.GetEmoji("chart") + " " + chart.ClockAxis + " by " + chart.VoltageAxis)
	return lipgloss.JoinVertical(lipgloss.Left, title, plot)
}

func (m *Model) renderFooter() string {
	var lines []string
	if err := m.session.Err(); err != nil {
		lines = append(lines, m.styles.Error.Render(emoji.GetEmoji("error")+" "+err.Error()))
	}
	if m.actionErr != nil {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("%s %s failed: %v", emoji.GetEmoji("error"), m.message, m.actionErr)))
	} else if m.message != "" {
		lines = append(lines, m.styles.Muted.Render("Parser "+m.message))
	}
	if r := m.lastReject; r != nil {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("%s line %d rejected: %v", emoji.GetEmoji("warning"), r.line, r.err)))
	}
	if m.opts.ChartPath != "" {
		lines = append(lines, m.styles.Muted.Render(emoji.GetEmoji("chart")+" chart: "+m.opts.ChartPath))
	}
	return strings.Join(lines, "\n")
}
