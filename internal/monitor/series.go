package monitor

import (
	"sort"
	"sync"
	"time"
)

// DataPoint is a single sample of a time series
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TimeSeries keeps the most recent samples of one measurement, oldest first
type TimeSeries struct {
	name      string
	maxPoints int
	mu        sync.RWMutex
	points    []DataPoint
}

// NewTimeSeries creates a series holding at most maxPoints samples
func NewTimeSeries(name string, maxPoints int) *TimeSeries {
	if maxPoints <= 0 {
		maxPoints = 1
	}
	return &TimeSeries{
		name:      name,
		maxPoints: maxPoints,
		points:    make([]DataPoint, 0, maxPoints),
	}
}

// Name returns the series name
func (ts *TimeSeries) Name() string {
	return ts.name
}

// Add appends a sample, dropping the oldest one when the series is full.
// Samples older than the latest one are inserted in timestamp order.
func (ts *TimeSeries) Add(timestamp time.Time, value float64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.points = append(ts.points, DataPoint{Timestamp: timestamp, Value: value})
	if n := len(ts.points); n > 1 && timestamp.Before(ts.points[n-2].Timestamp) {
		sort.SliceStable(ts.points, func(i, j int) bool {
			return ts.points[i].Timestamp.Before(ts.points[j].Timestamp)
		})
	}
	if over := len(ts.points) - ts.maxPoints; over > 0 {
		ts.points = append(ts.points[:0], ts.points[over:]...)
	}
}

// GetLatest returns the most recent data points (up to limit)
func (ts *TimeSeries) GetLatest(limit int) []DataPoint {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	start := max(len(ts.points)-limit, 0)
	result := make([]DataPoint, len(ts.points[start:]))
	copy(result, ts.points[start:])
	return result
}

// Values returns the most recent values (up to limit)
func (ts *TimeSeries) Values(limit int) []float64 {
	points := ts.GetLatest(limit)
	values := make([]float64, len(points))
	for i, dp := range points {
		values[i] = dp.Value
	}
	return values
}

// Prune removes data points older than the retention period
func (ts *TimeSeries) Prune(now time.Time, retention time.Duration) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	cutoff := now.Add(-retention)
	keep := sort.Search(len(ts.points), func(i int) bool {
		return ts.points[i].Timestamp.After(cutoff)
	})
	ts.points = append(ts.points[:0], ts.points[keep:]...)
}

// Size returns the number of data points in the series
func (ts *TimeSeries) Size() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.points)
}

// Aggregates represents statistical aggregates for a time series
type Aggregates struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// Aggregates summarises every sample in the series
func (ts *TimeSeries) Aggregates() Aggregates {
	return calculateAggregates(ts.Values(ts.maxPoints))
}

func calculateAggregates(values []float64) Aggregates {
	if len(values) == 0 {
		return Aggregates{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return Aggregates{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   sum / float64(len(values)),
		Count: len(values),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
	}
}

// percentile calculates the nth percentile of sorted values
func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	index := p * float64(len(sortedValues)-1)
	lowerIdx := int(index)
	upperIdx := lowerIdx + 1

	if upperIdx >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	// Linear interpolation
	weight := index - float64(lowerIdx)
	return sortedValues[lowerIdx]*(1-weight) + sortedValues[upperIdx]*weight
}

// RateSampler turns a growing total into a per-second rate series
type RateSampler struct {
	series    *TimeSeries
	lastTotal int64
	lastTime  time.Time
}

// NewRateSampler creates a sampler keeping maxPoints rates
func NewRateSampler(name string, maxPoints int) *RateSampler {
	return &RateSampler{series: NewTimeSeries(name, maxPoints)}
}

// Sample records the rate since the previous sample. The first sample and
// samples after the total went down only set the baseline.
func (rs *RateSampler) Sample(now time.Time, total int64) {
	prevTotal, prevTime := rs.lastTotal, rs.lastTime
	rs.lastTotal, rs.lastTime = total, now

	if prevTime.IsZero() || total < prevTotal {
		return
	}
	elapsed := now.Sub(prevTime).Seconds()
	if elapsed <= 0 {
		return
	}
	rs.series.Add(now, float64(total-prevTotal)/elapsed)
}

// Series returns the recorded rates
func (rs *RateSampler) Series() *TimeSeries {
	return rs.series
}
