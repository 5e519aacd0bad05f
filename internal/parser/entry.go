package parser

import (
	"cmp"
	"slices"
)

// Entry is one validated voltage/clock sample. It is a comparable value, so
// == is the equality used for deduplication.
type Entry struct {
	Voltage float64 `json:"voltage"`
	Clock   float64 `json:"clock"`
}

// Compare orders entries by voltage, then clock.
func Compare(a, b Entry) int {
	if c := cmp.Compare(a.Voltage, b.Voltage); c != 0 {
		return c
	}
	return cmp.Compare(a.Clock, b.Clock)
}

// Less reports whether e sorts before other.
func (e Entry) Less(other Entry) bool {
	return Compare(e, other) < 0
}

// SortEntries returns a copy of entries sorted by value.
func SortEntries(entries []Entry) []Entry {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, Compare)
	return sorted
}
