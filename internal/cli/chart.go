package cli

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yildizm/vftail/internal/chart"
	"github.com/yildizm/vftail/internal/emoji"
)

func newChartCommand() *cobra.Command {
	var (
		outputPath string
		cores      string
		width      int
		height     int
		title      string
	)

	cmd := &cobra.Command{
		Use:   "chart <file>",
		Short: "Render the voltage/clock scatter chart as PNG",
		Long: `Parse a sensor log up to its current end and render one dot series per core,
voltage on the X axis and clock on the Y axis.`,
		Example: `  vftail chart sensors.csv
  vftail chart -o core0.png --cores 0 sensors.csv
  vftail chart --cores 0,2,4 --width 1600 --height 900 sensors.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("width") {
				cfg.Chart.Width = width
			}
			if cmd.Flags().Changed("height") {
				cfg.Chart.Height = height
			}
			if cmd.Flags().Changed("title") {
				cfg.Chart.Title = title
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			show, err := parseCores(cores)
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

			p, err := parseToEnd(ctx, cfg, args[0], log)
			if err != nil {
				return err
			}
			defer p.Close()

			if !p.IsHeaderParsed() {
				return fmt.Errorf("no header line found in %s", args[0])
			}

			sources := p.GetPerCoreDataSource()
			all := make([]int, 0, len(sources))
			for core := range sources {
				all = append(all, core)
			}
			for _, core := range show {
				if !slices.Contains(all, core) {
					return fmt.Errorf("core %d is not in the log", core)
				}
			}

			vis := chart.NewVisibility()
			vis.Only(show, all)

			opts := chart.Options{Title: cfg.Chart.Title, Width: cfg.Chart.Width, Height: cfg.Chart.Height}
			if err := chart.RenderFile(outputPath, chart.Collect(sources, vis), opts); err != nil {
				return fmt.Errorf("failed to render chart: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Chart written to %s\n", emoji.GetEmoji("chart"), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "vf_chart.png", "output PNG path")
	cmd.Flags().StringVar(&cores, "cores", "", "comma separated cores to plot (default: all)")
	cmd.Flags().IntVar(&width, "width", 0, "image width in pixels (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "image height in pixels (default from config)")
	cmd.Flags().StringVar(&title, "title", "", "chart title (default from config)")

	return cmd
}

// parseCores parses a list such as "0,2, 5". Empty input selects all cores.
func parseCores(s string) ([]int, error) {
	var cores []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		core, err := strconv.Atoi(part)
		if err != nil || core < 0 {
			return nil, fmt.Errorf("invalid core %q", part)
		}
		if !slices.Contains(cores, core) {
			cores = append(cores, core)
		}
	}
	return cores, nil
}
