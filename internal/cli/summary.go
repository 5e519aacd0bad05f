package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yildizm/vftail/internal/config"
	"github.com/yildizm/vftail/internal/formatter"
	"github.com/yildizm/vftail/internal/logger"
	"github.com/yildizm/vftail/internal/parser"
)

func newSummaryCommand() *cobra.Command {
	var (
		outputFmt  string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "summary <file>",
		Short: "Summarise the samples collected so far",
		Long: `Parse a sensor log up to its current end and print what was collected:
line counters, and for every core the sample count, value ranges and the
highest clock reached at each voltage.`,
		Example: `  vftail summary sensors.csv
  vftail summary --output json sensors.csv
  vftail summary --output csv --file samples.csv sensors.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Format = outputFmt
			}
			return runSummary(cmd, cfg, args[0], outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json, csv, markdown)")
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "write the report to a file instead of stdout")

	return cmd
}

func runSummary(cmd *cobra.Command, cfg *config.Config, path, outputFile string) error {
	log, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	f, err := formatter.New(cfg.Output.Format, colorEnabled(cfg, cmd.OutOrStdout()) && outputFile == "", cfg.Output.Emoji)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := parseToEnd(ctx, cfg, path, log)
	if err != nil {
		return err
	}
	defer p.Close()

	out, err := f.Format(formatter.BuildReport(path, p))
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, out, 0o600); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// parseToEnd reads path up to its current end and returns the stopped
// parser. The caller closes it.
func parseToEnd(ctx context.Context, cfg *config.Config, path string, log *logger.Logger) (*parser.Parser, error) {
	tailOpts := cfg.TailOptions()
	tailOpts.Follow = false

	p, err := parser.Open(path, cfg.ParserConfig(),
		parser.WithLogger(log.WithComponent("parser")),
		parser.WithTailOptions(tailOpts),
	)
	if err != nil {
		return nil, err
	}

	if err := p.Run(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}

	c := p.Counters()
	log.DebugWithFields("parse finished", []logger.Field{
		logger.F("processed", c.ProcessedLines),
		logger.F("accepted", c.SuccessRecords),
		logger.F("rejected", c.ErrorRecords),
	})
	return p, nil
}
