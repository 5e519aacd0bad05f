package components

import (
	"fmt"
	"math"
	"strings"
)

// ScatterSeries is a set of points drawn with one glyph
type ScatterSeries struct {
	Glyph  rune
	Points [][2]float64
}

// overlapGlyph marks a cell claimed by more than one series
const overlapGlyph = '*'

// Scatter draws series on a character grid of width x height, including the
// y labels on the left and the x axis with its labels on the last two lines.
// It returns "" when there is nothing to draw or no room to draw it.
func Scatter(series []ScatterSeries, width, height int, xFormat, yFormat string) string {
	minX, maxX, minY, maxY, ok := scatterBounds(series)
	if !ok {
		return ""
	}

	topLabel := fmt.Sprintf(yFormat, maxY)
	bottomLabel := fmt.Sprintf(yFormat, minY)
	labelW := max(len(topLabel), len(bottomLabel))

	plotW := width - labelW - 2
	plotH := height - 2
	if plotW < 1 || plotH < 1 {
		return ""
	}

	grid := make([][]rune, plotH)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", plotW))
	}

	for _, s := range series {
		for _, pt := range s.Points {
			col := scale(pt[0], minX, maxX, plotW)
			row := plotH - 1 - scale(pt[1], minY, maxY, plotH)
			switch grid[row][col] {
			case ' ', s.Glyph:
				grid[row][col] = s.Glyph
			default:
				grid[row][col] = overlapGlyph
			}
		}
	}

	var b strings.Builder
	for i, row := range grid {
		label := ""
		switch i {
		case 0:
			label = topLabel
		case plotH - 1:
			label = bottomLabel
		}
		fmt.Fprintf(&b, "%*s |%s\n", labelW, label, string(row))
	}

	indent := strings.Repeat(" ", labelW+1)
	b.WriteString(indent + "+" + strings.Repeat("-", plotW) + "\n")

	left := fmt.Sprintf(xFormat, minX)
	right := fmt.Sprintf(xFormat, maxX)
	gap := max(plotW-len(left)-len(right), 1)
	b.WriteString(indent + " " + left + strings.Repeat(" ", gap) + right)

	return b.String()
}

// scale maps v from [lo, hi] onto a cell index in [0, n)
func scale(v, lo, hi float64, n int) int {
	if hi <= lo || n <= 1 {
		return 0
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(n-1)))
	return min(max(i, 0), n-1)
}

func scatterBounds(series []ScatterSeries) (minX, maxX, minY, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, s := range series {
		for _, pt := range s.Points {
			minX = math.Min(minX, pt[0])
			maxX = math.Max(maxX, pt[0])
			minY = math.Min(minY, pt[1])
			maxY = math.Max(maxY, pt[1])
			ok = true
		}
	}
	return minX, maxX, minY, maxY, ok
}
