package parser

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// HeaderMap maps core ids to field positions. Positions count fields after
// trimming and dropping empty ones.
type HeaderMap struct {
	Voltage map[int]int
	Clock   map[int]int
}

// Cores returns every discovered core id in ascending order.
func (h HeaderMap) Cores() []int {
	ids := make([]int, 0, len(h.Voltage)+len(h.Clock))
	for id := range h.Voltage {
		ids = append(ids, id)
	}
	for id := range h.Clock {
		if _, ok := h.Voltage[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// VoltageCores returns the ids that have a voltage column, ascending.
func (h HeaderMap) VoltageCores() []int {
	ids := make([]int, 0, len(h.Voltage))
	for id := range h.Voltage {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Unpaired returns ids that have only one of the two columns.
func (h HeaderMap) Unpaired() []int {
	var ids []int
	for _, id := range h.Cores() {
		_, v := h.Voltage[id]
		_, c := h.Clock[id]
		if v != c {
			ids = append(ids, id)
		}
	}
	return ids
}

// SplitFields splits a line on commas, trims each field and drops empty ones.
func SplitFields(line string) []string {
	raw := strings.Split(line, ",")
	fields := raw[:0]
	for _, f := range raw {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// ResolveHeader maps the columns of a candidate header line. Each field is
// tried against the voltage pattern and, only if that fails, the clock
// pattern. It returns ErrHeaderMismatch unless at least one voltage and one
// clock column were found.
func ResolveHeader(line string, voltageRe, clockRe *regexp.Regexp) (HeaderMap, error) {
	h := HeaderMap{
		Voltage: make(map[int]int),
		Clock:   make(map[int]int),
	}

	for idx, field := range SplitFields(line) {
		matched, err := matchHeaderField(idx, field, voltageRe, h.Voltage)
		if err != nil {
			return HeaderMap{}, err
		}
		if matched {
			continue
		}
		if _, err := matchHeaderField(idx, field, clockRe, h.Clock); err != nil {
			return HeaderMap{}, err
		}
	}

	if len(h.Voltage) == 0 || len(h.Clock) == 0 {
		return HeaderMap{}, fmt.Errorf("%w: %d voltage and %d clock columns", ErrHeaderMismatch, len(h.Voltage), len(h.Clock))
	}
	return h, nil
}

func matchHeaderField(idx int, field string, re *regexp.Regexp, into map[int]int) (bool, error) {
	m := re.FindStringSubmatch(field)
	if m == nil {
		return false, nil
	}

	group := re.SubexpIndex(indexGroup)
	if group < 0 {
		group = 1
	}
	core, err := strconv.Atoi(m[group])
	if err != nil {
		return false, fmt.Errorf("%w: column %q has no numeric core index", ErrHeaderMismatch, field)
	}
	if prev, dup := into[core]; dup {
		return false, fmt.Errorf("%w: core %d appears in columns %d and %d", ErrHeaderMismatch, core, prev, idx)
	}
	into[core] = idx
	return true, nil
}
