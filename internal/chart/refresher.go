package chart

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/yildizm/vftail/internal/logger"
	"github.com/yildizm/vftail/internal/parser"
)

// SourceFunc returns the feeds of the current parser, or nil before the
// header is known.
type SourceFunc func() map[int]parser.FeedView

// Refresher rewrites a chart file while the log is being followed. The file
// is only rewritten when the number of samples or the visible set changed.
type Refresher struct {
	Path       string
	Interval   time.Duration
	Options    Options
	Source     SourceFunc
	Visibility *Visibility
	Logger     *logger.Logger

	lastKey string
}

// Run renders every Interval until ctx is cancelled, then renders once more
// so the file reflects the final state.
func (r *Refresher) Run(ctx context.Context) error {
	if r.Logger == nil {
		r.Logger = logger.Nop()
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_, err := r.Refresh()
			return err
		case <-ticker.C:
			if _, err := r.Refresh(); err != nil {
				r.Logger.WarnWithFields("chart refresh failed", []logger.Field{logger.F("path", r.Path), logger.Error(err)})
			}
		}
	}
}

// Refresh renders the chart if anything changed since the last render and
// reports whether the file was written.
func (r *Refresher) Refresh() (bool, error) {
	series := Collect(r.Source(), r.Visibility)
	key := seriesKey(series)
	if key == r.lastKey {
		return false, nil
	}

	if err := RenderFile(r.Path, series, r.Options); err != nil {
		if errors.Is(err, ErrNoData) {
			return false, nil
		}
		return false, err
	}
	r.lastKey = key
	r.Logger.DebugWithFields("chart written", []logger.Field{logger.F("path", r.Path), logger.Count(len(series))})
	return true, nil
}

// seriesKey identifies the rendered content: feeds only grow, so the core
// ids and their lengths are enough.
func seriesKey(series []Series) string {
	b := make([]byte, 0, len(series)*8)
	for _, s := range series {
		b = strconv.AppendInt(b, int64(s.Core), 10)
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(len(s.Entries)), 10)
		b = append(b, ',')
	}
	return string(b)
}
