package monitor

import (
	"math"
	"sync/atomic"
	"time"
)

// Counter is a thread-safe monotonic counter
type Counter struct {
	value atomic.Int64
	name  string
}

// NewCounter creates a new counter metric
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc increments the counter by 1 and returns the new value
func (c *Counter) Inc() int64 {
	return c.value.Add(1)
}

// Add adds the given value to the counter and returns the new value
func (c *Counter) Add(value int64) int64 {
	return c.value.Add(value)
}

// Get returns the current counter value
func (c *Counter) Get() int64 {
	return c.value.Load()
}

// Name returns the counter name
func (c *Counter) Name() string {
	return c.name
}

// Timer is a thread-safe timer for measuring operation durations
type Timer struct {
	count     atomic.Int64
	totalTime atomic.Int64
	minTime   atomic.Int64
	maxTime   atomic.Int64
	name      string
}

// NewTimer creates a new timer metric
func NewTimer(name string) *Timer {
	t := &Timer{name: name}
	t.minTime.Store(math.MaxInt64)
	return t
}

// Record records a duration measurement
func (t *Timer) Record(duration time.Duration) {
	nanos := duration.Nanoseconds()

	t.count.Add(1)
	t.totalTime.Add(nanos)

	for {
		current := t.minTime.Load()
		if nanos >= current || t.minTime.CompareAndSwap(current, nanos) {
			break
		}
	}
	for {
		current := t.maxTime.Load()
		if nanos <= current || t.maxTime.CompareAndSwap(current, nanos) {
			break
		}
	}
}

// Time runs fn and records how long it took
func (t *Timer) Time(fn func()) {
	start := time.Now()
	fn()
	t.Record(time.Since(start))
}

// Count returns the number of recorded measurements
func (t *Timer) Count() int64 {
	return t.count.Load()
}

// TotalTime returns the total time of all measurements
func (t *Timer) TotalTime() time.Duration {
	return time.Duration(t.totalTime.Load())
}

// MinTime returns the minimum recorded time
func (t *Timer) MinTime() time.Duration {
	minTime := t.minTime.Load()
	if minTime == math.MaxInt64 {
		return 0
	}
	return time.Duration(minTime)
}

// MaxTime returns the maximum recorded time
func (t *Timer) MaxTime() time.Duration {
	return time.Duration(t.maxTime.Load())
}

// AvgTime returns the average time of all measurements
func (t *Timer) AvgTime() time.Duration {
	count := t.count.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(t.totalTime.Load() / count)
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}

// TimerStats is a point-in-time copy of a Timer
type TimerStats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total_ns"`
	Min   time.Duration `json:"min_ns"`
	Max   time.Duration `json:"max_ns"`
	Avg   time.Duration `json:"avg_ns"`
}

// Snapshot returns the current timer values
func (t *Timer) Snapshot() TimerStats {
	return TimerStats{
		Count: t.Count(),
		Total: t.TotalTime(),
		Min:   t.MinTime(),
		Max:   t.MaxTime(),
		Avg:   t.AvgTime(),
	}
}

// Throughput tracks lines and bytes consumed since a start time
type Throughput struct {
	lines     Counter
	bytes     Counter
	startTime time.Time
	now       func() time.Time
}

// NewThroughput creates a throughput tracker starting now
func NewThroughput() *Throughput {
	return &Throughput{startTime: time.Now(), now: time.Now}
}

// Record records one consumed line of n bytes
func (tp *Throughput) Record(n int) {
	tp.lines.Inc()
	tp.bytes.Add(int64(n))
}

// LinesPerSecond returns the average line rate since start
func (tp *Throughput) LinesPerSecond() float64 {
	elapsed := tp.now().Sub(tp.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(tp.lines.Get()) / elapsed
}

// Bytes returns the total bytes recorded
func (tp *Throughput) Bytes() int64 {
	return tp.bytes.Get()
}
