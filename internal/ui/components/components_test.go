package components

import (
	"strings"
	"testing"
)

func TestScatter(t *testing.T) {
	series := []ScatterSeries{
		{Glyph: '0', Points: [][2]float64{{1, 100}}},
		{Glyph: '1', Points: [][2]float64{{2, 200}}},
	}

	out := Scatter(series, 20, 6, "%.1f", "%.0f")
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d:\n%s", len(lines), out)
	}

	if !strings.HasPrefix(lines[0], "200 |") || !strings.HasSuffix(lines[0], "1") {
		t.Errorf("Expected top row to end with core 1, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[3], "100 |0") {
		t.Errorf("Expected bottom row to start with core 0, got %q", lines[3])
	}
	if !strings.HasPrefix(lines[4], "    +---") {
		t.Errorf("Expected x axis, got %q", lines[4])
	}
	if !strings.Contains(lines[5], "1.0") || !strings.HasSuffix(lines[5], "2.0") {
		t.Errorf("Expected x labels 1.0 and 2.0, got %q", lines[5])
	}
}

func TestScatterOverlap(t *testing.T) {
	series := []ScatterSeries{
		{Glyph: 'a', Points: [][2]float64{{1, 1}, {2, 2}}},
		{Glyph: 'b', Points: [][2]float64{{1, 1}}},
	}

	out := Scatter(series, 12, 5, "%.0f", "%.0f")
	if !strings.Contains(out, string(overlapGlyph)) {
		t.Errorf("Expected overlap marker in:\n%s", out)
	}
}

func TestScatterEmpty(t *testing.T) {
	tests := []struct {
		name          string
		series        []ScatterSeries
		width, height int
	}{
		{"no series", nil, 40, 10},
		{"no points", []ScatterSeries{{Glyph: 'x'}}, 40, 10},
		{"too narrow", []ScatterSeries{{Glyph: 'x', Points: [][2]float64{{1, 1}}}}, 3, 10},
		{"too short", []ScatterSeries{{Glyph: 'x', Points: [][2]float64{{1, 1}}}}, 40, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scatter(tt.series, tt.width, tt.height, "%.0f", "%.0f"); got != "" {
				t.Errorf("Expected empty plot, got:\n%s", got)
			}
		})
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"empty", nil, 5, ""},
		{"flat", []float64{3, 3, 3}, 5, "▁▁▁"},
		{"rising", []float64{0, 7, 14}, 5, "▁▄█"},
		{"keeps tail", []float64{100, 0, 1}, 2, "▁█"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStatsDashboard(t *testing.T) {
	d := NewStatsDashboard(2)
	d.AddCard(NewStatsCard("Processed", "12"))
	card := NewStatsCard("Rejected", "1").SetStatus("error")
	card.Color = false
	d.AddCard(card)

	out := d.Render()
	for _, want := range []string{"Processed", "12", "Rejected"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}
	if NewStatsDashboard(3).Render() != "" {
		t.Error("Expected empty dashboard to render nothing")
	}
}
