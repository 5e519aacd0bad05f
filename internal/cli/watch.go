package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yildizm/vftail/internal/chart"
	"github.com/yildizm/vftail/internal/config"
	"github.com/yildizm/vftail/internal/emoji"
	"github.com/yildizm/vftail/internal/formatter"
	"github.com/yildizm/vftail/internal/logger"
	"github.com/yildizm/vftail/internal/metrics"
	"github.com/yildizm/vftail/internal/parser"
	"github.com/yildizm/vftail/internal/session"
	"github.com/yildizm/vftail/internal/ui"
	"golang.org/x/sync/errgroup"
)

type watchOptions struct {
	plain       bool
	chartPath   string
	metricsAddr string
	poll        time.Duration
	noFollow    bool
	cores       string
	theme       string
}

func newWatchCommand() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Follow a sensor log live",
		Long: `Follow a sensor log while the monitoring tool writes it and show the per-core
samples in a terminal dashboard.

The dashboard lets you hide, solo or exclude cores, stop and restart the parser
and reload the file from the start. With --plain a status line is printed
instead. Press Ctrl+C to stop watching.`,
		Example: `  vftail watch sensors.csv
  vftail watch --chart vf_chart.png sensors.csv
  vftail watch --plain --metrics-addr :9101 sensors.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runWatch(cmd, cfg, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print status lines instead of the dashboard")
	cmd.Flags().StringVar(&opts.chartPath, "chart", "", "keep a PNG scatter chart up to date at this path")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&opts.poll, "poll", 0, "how often to check the file for new lines")
	cmd.Flags().BoolVar(&opts.noFollow, "no-follow", false, "stop at the current end of the file")
	cmd.Flags().StringVar(&opts.cores, "cores", "", "comma separated cores shown at start (default: all)")
	cmd.Flags().StringVar(&opts.theme, "theme", "default", "dashboard theme (default, high-contrast, minimal)")

	return cmd
}

// apply copies explicitly set flags over the configuration
func (o *watchOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("chart") {
		cfg.Chart.Path = o.chartPath
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.ListenAddr = o.metricsAddr
	}
	if cmd.Flags().Changed("poll") {
		cfg.Tail.PollInterval = o.poll
	}
	if o.noFollow {
		cfg.Tail.Follow = false
	}
	if !ui.SetThemeByName(o.theme) {
		return fmt.Errorf("unknown theme %q (available: %v)", o.theme, ui.GetAvailableThemes())
	}
	return cfg.Validate()
}

func runWatch(cmd *cobra.Command, cfg *config.Config, path string, opts watchOptions) error {
	show, err := parseCores(opts.cores)
	if err != nil {
		return err
	}

	log, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := session.New(path, cfg.ParserConfig(), log, parser.WithTailOptions(cfg.TailOptions()))
	defer s.Close()

	vis := chart.NewVisibility()
	if len(show) > 0 {
		s.OnAttach(initialCores(vis, show))
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.ListenAddr != "" {
		collector := metrics.NewCollector(cfg.Metrics.Namespace)
		s.OnAttach(collector.Attach)
		g.Go(func() error {
			return collector.Serve(gctx, cfg.Metrics.ListenAddr, cfg.Metrics.Path, log.WithComponent("metrics"))
		})
	}

	if cfg.Chart.Path != "" {
		refresher := &chart.Refresher{
			Path:       cfg.Chart.Path,
			Interval:   cfg.Chart.RefreshInterval,
			Options:    chart.Options{Title: cfg.Chart.Title, Width: cfg.Chart.Width, Height: cfg.Chart.Height},
			Source:     sessionSource(s),
			Visibility: vis,
			Logger:     log.WithComponent("chart"),
		}
		g.Go(func() error {
			return refresher.Run(gctx)
		})
	}

	out := cmd.OutOrStdout()
	if opts.plain {
		printer := &plainPrinter{w: out}
		s.OnAttach(printer.attach)
		if err := s.Start(gctx); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			defer cancel()
			return printer.run(gctx, s, cfg.Tail.PollInterval)
		})
	} else {
		if err := s.Start(gctx); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			defer cancel()
			return ui.Run(gctx, s, ui.Options{
				Source:     path,
				Visibility: vis,
				ChartPath:  cfg.Chart.Path,
				Color:      colorEnabled(cfg, out),
			})
		})
	}

	err = g.Wait()
	log.DebugWithFields("watch finished", []logger.Field{logger.Error(err)})
	return err
}

// initialCores limits vis to show when the first header is parsed. Later
// parsers, e.g. after a reload, keep whatever the user picked since.
func initialCores(vis *chart.Visibility, show []int) session.AttachFunc {
	var once sync.Once
	return func(p *parser.Parser) func() {
		return p.OnHeaderParsed(func(h parser.HeaderParsed) {
			once.Do(func() {
				all := make([]int, 0, len(h.PerCoreDataSources))
				for core := range h.PerCoreDataSources {
					all = append(all, core)
				}
				vis.Only(show, all)
			})
		})
	}
}

// sessionSource feeds the chart from whichever parser the session holds
func sessionSource(s *session.Session) chart.SourceFunc {
	return func() map[int]parser.FeedView {
		p := s.Parser()
		if p == nil {
			return nil
		}
		return p.GetPerCoreDataSource()
	}
}

// plainPrinter writes the status line whenever it changes
type plainPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func (pp *plainPrinter) println(line string) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	fmt.Fprintln(pp.w, line)
}

func (pp *plainPrinter) attach(p *parser.Parser) func() {
	offHeader := p.OnHeaderParsed(func(h parser.HeaderParsed) {
		pp.println(fmt.Sprintf("%s Header found: %d cores", emoji.GetEmoji("success"), len(h.PerCoreDataSources)))
	})
	offReject := p.OnLineRejected(func(r parser.LineRejected) {
		pp.println(fmt.Sprintf("%s Line %d rejected: %v", emoji.GetEmoji("warning"), r.Line, r.Err))
	})
	return func() {
		offHeader()
		offReject()
	}
}

func (pp *plainPrinter) status(s *session.Session) {
	p := s.Parser()
	if p == nil {
		return
	}
	line := formatter.StatusLine(p.State(), p.Counters())

	pp.mu.Lock()
	defer pp.mu.Unlock()
	if line != pp.last {
		fmt.Fprintln(pp.w, line)
		pp.last = line
	}
}

// run prints status changes until ctx is cancelled or the parser stops on
// its own, which happens at end of file without follow or on a read error.
func (pp *plainPrinter) run(ctx context.Context, s *session.Session, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := s.Done()
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			pp.status(s)
			return nil
		case <-done:
			pp.status(s)
			return s.Err()
		case <-ticker.C:
			pp.status(s)
		}
	}
}
