// Package metrics exports parser progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yildizm/vftail/internal/logger"
	"github.com/yildizm/vftail/internal/parser"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "vftail"

// Collector turns parser events into Prometheus metrics. Counters keep
// growing across parser reloads; per-core gauges are reset on every Attach.
type Collector struct {
	registry *prometheus.Registry

	linesProcessed prometheus.Counter
	linesAccepted  prometheus.Counter
	linesRejected  *prometheus.CounterVec
	attachments    prometheus.Counter

	state         prometheus.Gauge
	headerParsed  prometheus.Gauge
	cores         prometheus.Gauge
	coreRecords   *prometheus.GaugeVec
	coreDupes     *prometheus.GaugeVec
	coreVoltage   *prometheus.GaugeVec
	coreClock     *prometheus.GaugeVec
	lastLineEpoch prometheus.Gauge

	mu    sync.Mutex
	views map[int]parser.FeedView
	now   func() time.Time
}

// NewCollector creates a collector with its own registry. An empty
// namespace uses DefaultNamespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		now:      time.Now,
	}

	c.linesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_processed_total",
		Help:      "Lines read from the log, header lines included",
	})
	c.linesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_accepted_total",
		Help:      "Data lines accepted for every core",
	})
	c.linesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_rejected_total",
		Help:      "Data lines rejected, by reason",
	}, []string{"reason"})
	c.attachments = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parser_starts_total",
		Help:      "Parser instances attached, including reloads",
	})

	c.state = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "parser_state",
		Help:      "Parser run state (0 idle, 1 running, 2 stopped)",
	})
	c.headerParsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "header_parsed",
		Help:      "1 once the header line has been resolved",
	})
	c.cores = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cores",
		Help:      "Cores discovered in the header",
	})
	c.coreRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "core_records",
		Help:      "Distinct voltage/clock samples per core",
	}, []string{"core"})
	c.coreDupes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "core_duplicates",
		Help:      "Repeated voltage/clock samples per core",
	}, []string{"core"})
	c.coreVoltage = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "core_last_voltage_volts",
		Help:      "Voltage of the newest distinct sample per core",
	}, []string{"core"})
	c.coreClock = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "core_last_clock_mhz",
		Help:      "Clock of the newest distinct sample per core",
	}, []string{"core"})
	c.lastLineEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_accepted_line_timestamp_seconds",
		Help:      "Unix time of the last accepted data line",
	})

	c.registry.MustRegister(
		c.linesProcessed, c.linesAccepted, c.linesRejected, c.attachments,
		c.state, c.headerParsed, c.cores,
		c.coreRecords, c.coreDupes, c.coreVoltage, c.coreClock,
		c.lastLineEpoch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Attach subscribes to p and returns a func that unsubscribes again.
// Attach before starting p so no event is missed.
func (c *Collector) Attach(p *parser.Parser) func() {
	views := p.GetPerCoreDataSource()
	c.mu.Lock()
	c.views = views
	c.mu.Unlock()

	c.coreRecords.Reset()
	c.coreDupes.Reset()
	c.coreVoltage.Reset()
	c.coreClock.Reset()
	c.headerParsed.Set(boolValue(p.IsHeaderParsed()))
	c.cores.Set(float64(len(views)))
	c.state.Set(float64(p.State()))
	c.attachments.Inc()

	unsubs := []func(){
		p.OnPropertyChanged(c.onProperty),
		p.OnHeaderParsed(c.onHeader),
		p.OnLineParsed(c.onLine),
		p.OnLineRejected(c.onReject),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (c *Collector) onProperty(pc parser.PropertyChange) {
	switch pc.Property {
	case parser.PropertyProcessedLines:
		c.linesProcessed.Inc()
	case parser.PropertyState:
		if s, ok := pc.Value.(parser.State); ok {
			c.state.Set(float64(s))
		}
	case parser.PropertyHeaderParsed:
		if b, ok := pc.Value.(bool); ok {
			c.headerParsed.Set(boolValue(b))
		}
	}
}

func (c *Collector) onHeader(h parser.HeaderParsed) {
	c.mu.Lock()
	c.views = h.PerCoreDataSources
	c.mu.Unlock()
	c.cores.Set(float64(len(h.PerCoreDataSources)))
}

func (c *Collector) onLine(l parser.LineParsed) {
	c.linesAccepted.Inc()
	c.lastLineEpoch.Set(float64(c.now().Unix()))

	c.mu.Lock()
	views := c.views
	c.mu.Unlock()

	for core, stats := range l.PerCoreStats {
		label := strconv.Itoa(core)
		c.coreRecords.WithLabelValues(label).Set(float64(stats.RecordCount))
		c.coreDupes.WithLabelValues(label).Set(float64(stats.DuplicateCount))

		view, ok := views[core]
		if !ok {
			continue
		}
		if n := view.Len(); n > 0 {
			last := view.At(n - 1)
			c.coreVoltage.WithLabelValues(label).Set(last.Voltage)
			c.coreClock.WithLabelValues(label).Set(last.Clock)
		}
	}
}

func (c *Collector) onReject(r parser.LineRejected) {
	c.linesRejected.WithLabelValues(rejectReason(r.Err)).Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, parser.ErrRange):
		return "range"
	case errors.Is(err, parser.ErrFormat):
		return "format"
	default:
		return "other"
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Router mounts the metrics handler on path, "/metrics" when empty.
func (c *Collector) Router(path string) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(path, c.Handler())
	return r
}

// Serve exposes the metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr, path string, log *logger.Logger) error {
	if path == "" {
		path = "/metrics"
	}
	if log == nil {
		log = logger.Nop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Router(path),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoWithFields("serving metrics", []logger.Field{logger.F("addr", addr), logger.F("path", path)})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down metrics server: %w", err)
		}
		return nil
	}
}
