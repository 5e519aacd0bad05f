package components

import (
	"github.com/charmbracelet/lipgloss"
)

// StatsCard represents a statistics card component
type StatsCard struct {
	Title  string
	Value  string
	Status string // "success", "warning", "error", "info"
	Width  int
	Color  bool
}

// NewStatsCard creates a new stats card
func NewStatsCard(title, value string) *StatsCard {
	return &StatsCard{
		Title:  title,
		Value:  value,
		Status: "info",
		Width:  18,
		Color:  true,
	}
}

// SetStatus sets the status color of the card
func (s *StatsCard) SetStatus(status string) *StatsCard {
	s.Status = status
	return s
}

// Render renders the stats card
func (s *StatsCard) Render() string {
	successColor := lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	warningColor := lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	errorColor := lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}
	infoColor := lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	bodyColor := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

	titleStyle := lipgloss.NewStyle().Bold(true)
	valueStyle := lipgloss.NewStyle().Bold(true)
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	if s.Color {
		titleStyle = titleStyle.Foreground(infoColor)
		boxStyle = boxStyle.BorderForeground(bodyColor)
		switch s.Status {
		case "success":
			valueStyle = valueStyle.Foreground(successColor)
		case "warning":
			valueStyle = valueStyle.Foreground(warningColor)
		case "error":
			valueStyle = valueStyle.Foreground(errorColor)
		case "info":
			valueStyle = valueStyle.Foreground(infoColor)
		default:
			valueStyle = valueStyle.Foreground(bodyColor)
		}
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		titleStyle.Render(s.Title),
		valueStyle.Render(s.Value),
	)
	return boxStyle.Width(s.Width).Align(lipgloss.Center).Render(content)
}

// StatsDashboard lays out cards in rows
type StatsDashboard struct {
	cards   []*StatsCard
	columns int
}

// NewStatsDashboard creates a new stats dashboard
func NewStatsDashboard(columns int) *StatsDashboard {
	if columns < 1 {
		columns = 1
	}
	return &StatsDashboard{columns: columns}
}

// AddCard adds a stats card to the dashboard
func (d *StatsDashboard) AddCard(card *StatsCard) {
	d.cards = append(d.cards, card)
}

// Render renders the stats dashboard
func (d *StatsDashboard) Render() string {
	if len(d.cards) == 0 {
		return ""
	}

	var rows []string
	for i := 0; i < len(d.cards); i += d.columns {
		end := min(i+d.columns, len(d.cards))

		rowCards := make([]string, 0, end-i)
		for _, card := range d.cards[i:end] {
			rowCards = append(rowCards, card.Render())
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rowCards...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
