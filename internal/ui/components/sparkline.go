package components

import (
	"math"
	"strings"
)

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the last width values as block characters scaled
// between their minimum and maximum.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b strings.Builder
	for _, v := range values {
		normalized := 0.0
		if hi > lo {
			normalized = (v - lo) / (hi - lo)
		}
		idx := int(normalized * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[min(idx, len(sparkChars)-1)])
	}
	return b.String()
}
