// Package parser turns a hardware monitoring CSV log into per-core streams of
// unique (voltage, clock) samples while the log is still being written.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yildizm/vftail/internal/logger"
	"github.com/yildizm/vftail/internal/monitor"
	"github.com/yildizm/vftail/internal/tail"
)

// State is the run state of a parser.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// numberPattern accepts plain unsigned decimals such as 4200 or 1.250.
var numberPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// LineSource supplies lines to the parser. ReadLine returns tail.ErrNoLine
// when nothing is available yet; Wait blocks until it may be worth reading
// again and returns io.EOF when the source will never grow.
type LineSource interface {
	ReadLine() (string, error)
	Wait(ctx context.Context) error
	Close() error
}

// Counters is a point-in-time copy of the line counters.
type Counters struct {
	ProcessedLines int64 `json:"processed_lines"`
	SuccessRecords int64 `json:"success_records"`
	ErrorRecords   int64 `json:"error_records"`
}

type options struct {
	log  *logger.Logger
	tail tail.Options
}

// Option configures a Parser.
type Option func(*options)

// WithLogger sets the logger used for header and rejection diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithTailOptions sets how Open follows the file.
func WithTailOptions(t tail.Options) Option {
	return func(o *options) {
		o.tail = t
	}
}

// Parser reads a log line by line, resolves the header once and then
// validates every data line against it. Run is the only writer; every query
// method is safe to call from other goroutines.
type Parser struct {
	cfg       Config
	voltageRe *regexp.Regexp
	clockRe   *regexp.Regexp
	src       LineSource
	log       *logger.Logger

	state        atomic.Int32
	started      atomic.Bool
	headerParsed atomic.Bool

	processed  *monitor.Counter
	success    *monitor.Counter
	failed     *monitor.Counter
	lineTiming *monitor.Timer
	throughput *monitor.Throughput

	// header and dataCores are written once by Run before streams is set.
	header    HeaderMap
	dataCores []int

	mu      sync.RWMutex
	streams map[int]*CoreStream

	onHeader   handlerList[HeaderParsed]
	onLine     handlerList[LineParsed]
	onProperty handlerList[PropertyChange]
	onReject   handlerList[LineRejected]

	closeOnce sync.Once
	closeErr  error
}

// Open opens path for shared reading and returns a parser following it.
// Failing to open the file returns an *OpenError.
func Open(path string, cfg Config, opts ...Option) (*Parser, error) {
	o := applyOptions(opts)
	patterns, err := cfg.compile()
	if err != nil {
		return nil, fmt.Errorf("invalid parser config: %w", err)
	}

	src, err := tail.Open(path, o.tail)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return newParser(src, cfg, patterns, o), nil
}

// New returns a parser reading from src. The parser takes ownership of src
// and closes it in Close.
func New(src LineSource, cfg Config, opts ...Option) (*Parser, error) {
	if src == nil {
		return nil, errors.New("line source is nil")
	}
	patterns, err := cfg.compile()
	if err != nil {
		return nil, fmt.Errorf("invalid parser config: %w", err)
	}
	return newParser(src, cfg, patterns, applyOptions(opts)), nil
}

func applyOptions(opts []Option) options {
	o := options{tail: tail.DefaultOptions()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.tail.Logger == nil {
		o.tail.Logger = o.log.WithComponent("tail")
	}
	return o
}

func newParser(src LineSource, cfg Config, patterns headerPatterns, o options) *Parser {
	return &Parser{
		cfg:        cfg,
		voltageRe:  patterns.voltage,
		clockRe:    patterns.clock,
		src:        src,
		log:        o.log,
		processed:  monitor.NewCounter("processed_lines"),
		success:    monitor.NewCounter("success_records"),
		failed:     monitor.NewCounter("error_records"),
		lineTiming: monitor.NewTimer("line_processing"),
		throughput: monitor.NewThroughput(),
	}
}

// Config returns the configuration the parser was built with.
func (p *Parser) Config() Config {
	return p.cfg
}

// Run reads and processes lines until ctx is cancelled, a non-following
// source is exhausted or reading fails. Only a read failure is returned as
// an error. Run may be called once per parser.
func (p *Parser) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	p.setState(StateRunning)
	defer p.setState(StateStopped)

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := p.src.ReadLine()
		if err == nil {
			p.handleLine(line)
			continue
		}
		if !errors.Is(err, tail.ErrNoLine) {
			p.log.ErrorWithFields("read failed", []logger.Field{logger.Error(err)})
			return fmt.Errorf("failed to read line: %w", err)
		}

		if err := p.src.Wait(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			p.log.ErrorWithFields("wait failed", []logger.Field{logger.Error(err)})
			return fmt.Errorf("failed to wait for input: %w", err)
		}
	}
}

func (p *Parser) handleLine(line string) {
	start := time.Now()
	defer func() {
		p.lineTiming.Record(time.Since(start))
	}()

	n := p.processed.Inc()
	p.throughput.Record(len(line))
	p.emitProperty(PropertyProcessedLines, n)

	if !p.headerParsed.Load() {
		p.handleHeader(line, n)
		return
	}
	p.handleData(line, n)
}

func (p *Parser) handleHeader(line string, n int64) {
	h, err := ResolveHeader(line, p.voltageRe, p.clockRe)
	if err != nil {
		p.log.Debug("line %d is not a header: %v", n, err)
		return
	}

	streams := make(map[int]*CoreStream, len(h.Cores()))
	for _, id := range h.Cores() {
		streams[id] = newCoreStream()
	}
	p.header = h
	p.dataCores = h.VoltageCores()

	p.mu.Lock()
	p.streams = streams
	p.mu.Unlock()

	if unpaired := h.Unpaired(); len(unpaired) > 0 {
		p.log.WarnWithFields("cores with only one of voltage or clock columns", []logger.Field{
			logger.F("cores", unpaired),
		})
	}
	p.log.InfoWithFields("header resolved", []logger.Field{
		logger.F("line", n),
		logger.Count(len(streams)),
	})

	p.onHeader.emit(HeaderParsed{PerCoreDataSources: p.GetPerCoreDataSource()})
	p.headerParsed.Store(true)
	p.emitProperty(PropertyHeaderParsed, true)
}

// handleData validates every core on the line before committing any of
// them, so a line either contributes to all cores or to none.
func (p *Parser) handleData(line string, n int64) {
	fields := SplitFields(line)

	entries := make([]Entry, len(p.dataCores))
	for i, core := range p.dataCores {
		e, err := p.extract(fields, core, n)
		if err != nil {
			p.reject(n, err)
			return
		}
		entries[i] = e
	}

	p.mu.Lock()
	for i, core := range p.dataCores {
		p.streams[core].insert(entries[i])
	}
	stats := p.statsLocked()
	p.mu.Unlock()

	s := p.success.Inc()
	p.emitProperty(PropertySuccessRecords, s)
	p.onLine.emit(LineParsed{
		ProcessedLines: p.processed.Get(),
		SuccessRecords: s,
		ErrorRecords:   p.failed.Get(),
		PerCoreStats:   stats,
	})
}

func (p *Parser) extract(fields []string, core int, n int64) (Entry, error) {
	voltage, err := p.field(fields, p.header.Voltage, core, "voltage", n)
	if err != nil {
		return Entry{}, err
	}
	clock, err := p.field(fields, p.header.Clock, core, "clock", n)
	if err != nil {
		return Entry{}, err
	}

	if !p.cfg.inVoltageRange(voltage) {
		return Entry{}, &LineError{Line: n, Core: core, Field: "voltage", Value: strconv.FormatFloat(voltage, 'g', -1, 64), Err: ErrRange}
	}
	if !p.cfg.inClockRange(clock) {
		return Entry{}, &LineError{Line: n, Core: core, Field: "clock", Value: strconv.FormatFloat(clock, 'g', -1, 64), Err: ErrRange}
	}
	return Entry{Voltage: voltage, Clock: clock}, nil
}

func (p *Parser) field(fields []string, index map[int]int, core int, name string, n int64) (float64, error) {
	idx, ok := index[core]
	if !ok || idx >= len(fields) {
		return 0, &LineError{Line: n, Core: core, Field: name, Err: ErrFormat}
	}

	raw := fields[idx]
	if !numberPattern.MatchString(raw) {
		return 0, &LineError{Line: n, Core: core, Field: name, Value: raw, Err: ErrFormat}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &LineError{Line: n, Core: core, Field: name, Value: raw, Err: ErrFormat}
	}
	return v, nil
}

func (p *Parser) reject(n int64, err error) {
	e := p.failed.Inc()
	p.log.DebugWithFields("line rejected", []logger.Field{
		logger.F("line", n),
		logger.Error(err),
	})
	p.emitProperty(PropertyErrorRecords, e)
	p.onReject.emit(LineRejected{Line: n, Err: err})
}

func (p *Parser) setState(s State) {
	p.state.Store(int32(s))
	p.emitProperty(PropertyState, s)
}

func (p *Parser) emitProperty(prop Property, value any) {
	p.onProperty.emit(PropertyChange{Property: prop, Value: value})
}

// State returns the current run state.
func (p *Parser) State() State {
	return State(p.state.Load())
}

// Counters returns the current line counters.
func (p *Parser) Counters() Counters {
	return Counters{
		ProcessedLines: p.processed.Get(),
		SuccessRecords: p.success.Get(),
		ErrorRecords:   p.failed.Get(),
	}
}

// IsHeaderParsed reports whether the header has been resolved.
func (p *Parser) IsHeaderParsed() bool {
	return p.headerParsed.Load()
}

// GetPerCoreDataSource returns the read-only feed of every discovered core,
// or nil before the header is resolved. Repeated calls return views of the
// same feeds.
func (p *Parser) GetPerCoreDataSource() map[int]FeedView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.streams == nil {
		return nil
	}
	views := make(map[int]FeedView, len(p.streams))
	for id, s := range p.streams {
		views[id] = s.View()
	}
	return views
}

// Stats returns a copy of the per-core statistics.
func (p *Parser) Stats() map[int]CoreStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statsLocked()
}

func (p *Parser) statsLocked() map[int]CoreStats {
	if p.streams == nil {
		return nil
	}
	stats := make(map[int]CoreStats, len(p.streams))
	for id, s := range p.streams {
		stats[id] = s.stats
	}
	return stats
}

// LineTiming returns how long processing a line has taken so far.
func (p *Parser) LineTiming() monitor.TimerStats {
	return p.lineTiming.Snapshot()
}

// LinesPerSecond returns the average line rate since the parser was built.
func (p *Parser) LinesPerSecond() float64 {
	return p.throughput.LinesPerSecond()
}

// BytesRead returns the number of line bytes processed, terminators excluded.
func (p *Parser) BytesRead() int64 {
	return p.throughput.Bytes()
}

// OnHeaderParsed registers fn for the header event and returns a func that
// removes it.
func (p *Parser) OnHeaderParsed(fn func(HeaderParsed)) func() {
	return p.onHeader.add(fn)
}

// OnLineParsed registers fn for every successful data line.
func (p *Parser) OnLineParsed(fn func(LineParsed)) func() {
	return p.onLine.add(fn)
}

// OnPropertyChanged registers fn for property changes.
func (p *Parser) OnPropertyChanged(fn func(PropertyChange)) func() {
	return p.onProperty.add(fn)
}

// OnLineRejected registers fn for every rejected data line.
func (p *Parser) OnLineRejected(fn func(LineRejected)) func() {
	return p.onReject.add(fn)
}

// Close releases the line source. Later calls return the first result.
func (p *Parser) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.src.Close()
	})
	return p.closeErr
}
