package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	wildtag "github.com/anatolykoptev/go-wildtag"
	"github.com/anatolykoptev/go-wildtag/internal/config"
	"github.com/anatolykoptev/go-wildtag/internal/store"
)

// runOptions are the per-invocation settings of a processing run.
type runOptions struct {
	input  string
	test   string
	mode   wildtag.Mode
	report string
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Classify and rename the images in a directory",
		Long: `Back up, classify, tag and rename every supported image in the input
directory. Images below their category threshold are left untouched
(or moved to rejected/ with --sort). Reports are written to <input>/logs.

With --preview nothing is copied, renamed or tagged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts, err := processFlags(cmd, a.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			proc, err := a.newProcessor()
			if err != nil {
				return err
			}
			hist, err := a.openStore()
			if err != nil {
				return err
			}
			_, err = runOnce(ctx, a, proc, hist, opts)
			return err
		},
	}

	cmd.Flags().StringP("input", "i", "", "input directory containing images (default from config)")
	cmd.Flags().String("backup", "", "backup directory for original images (default <input>/backup)")
	cmd.Flags().String("test", "", "process a single image file (relative to --input)")
	cmd.Flags().String("report", "", "report format (json, html, both)")
	cmd.Flags().Bool("preview", false, "preview mode: classify without touching files")
	cmd.Flags().Int("workers", 0, "parallel analysis workers (default from config)")
	cmd.Flags().Bool("sort", false, "move accepted images to processed/ and rejected ones to rejected/")

	return cmd
}

// processFlags applies process command flags on top of the loaded configuration.
func processFlags(cmd *cobra.Command, cfg *config.Config) (runOptions, error) {
	flags := cmd.Flags()
	if v, _ := flags.GetBool("sort"); v {
		cfg.Sort = true
	}
	opts, err := runFlags(cmd, cfg)
	if err != nil {
		return runOptions{}, err
	}
	opts.test, _ = flags.GetString("test")
	if preview, _ := flags.GetBool("preview"); preview {
		opts.mode = wildtag.ModePreview
	}
	return opts, nil
}

// runFlags applies the flags shared by process and watch and validates cfg.
func runFlags(cmd *cobra.Command, cfg *config.Config) (runOptions, error) {
	flags := cmd.Flags()
	if v, _ := flags.GetString("input"); v != "" {
		cfg.InputDir = v
	}
	if v, _ := flags.GetString("backup"); v != "" {
		cfg.BackupDir = v
	}
	if v, _ := flags.GetString("report"); v != "" {
		cfg.Report = v
	}
	if v, _ := flags.GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	if err := cfg.Validate(); err != nil {
		return runOptions{}, err
	}
	return runOptions{input: cfg.InputDir, report: cfg.Report, mode: wildtag.ModeProcess}, nil
}

// runOnce processes one directory (or one test image), logs the summary,
// writes the reports and records the run in hist when it is non-nil.
func runOnce(ctx context.Context, a *app, proc *wildtag.Processor, hist *store.Store, opts runOptions) (wildtag.BatchResult, error) {
	runID := store.NewRunID()
	log := a.log.WithRun(runID)

	layout, err := wildtag.PrepareLayout(opts.input)
	if err != nil {
		return wildtag.BatchResult{}, err
	}

	var batch wildtag.BatchResult
	if opts.test != "" {
		path := opts.test
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.input, path)
		}
		if err := wildtag.ValidateImage(path); err != nil {
			return wildtag.BatchResult{}, fmt.Errorf("test image: %w", err)
		}
		batch = wildtag.BatchResult{Mode: opts.mode, InputDir: opts.input, StartedAt: time.Now()}
		batch.Results = []wildtag.ImageResult{proc.ProcessFile(ctx, path, opts.mode)}
		batch.FinishedAt = time.Now()
	} else {
		batch, err = proc.ProcessDir(ctx, opts.input, opts.mode)
		if err != nil {
			return batch, err
		}
	}

	logSummary(log.Logger, batch)
	if err := writeReports(log.Logger, layout.Logs, batch, opts.report, batch.FinishedAt); err != nil {
		return batch, err
	}

	if hist != nil {
		// Record even after cancellation; the results already happened.
		if _, err := hist.SaveRun(context.WithoutCancel(ctx), runID, batch); err != nil {
			log.WithError(err).Warn("wildtag: failed to save run history")
		}
	}
	return batch, ctx.Err()
}

func logSummary(log *slog.Logger, b wildtag.BatchResult) {
	s := b.Analyze()
	log.Info("wildtag: processing summary",
		"mode", b.Mode.String(),
		"total", s.Total,
		"successful", s.Successful,
		"failed", s.Failed,
		"accepted", s.Accepted,
		"duplicates", s.Duplicates,
		"avg_confidence", fmt.Sprintf("%.3f", s.AvgConfidence),
	)
	for name, n := range s.ErrorTypes {
		log.Debug("wildtag: failures by type", "type", name, "count", n)
	}
}

func writeReports(log *slog.Logger, dir string, b wildtag.BatchResult, format string, at time.Time) error {
	if format == config.ReportJSON || format == config.ReportBoth {
		path, err := wildtag.WriteJSONReport(dir, b, at)
		if err != nil {
			return fmt.Errorf("json report: %w", err)
		}
		log.Info("wildtag: report saved", "format", "json", "path", path)
	}
	if format == config.ReportHTML || format == config.ReportBoth {
		path, err := wildtag.WriteHTMLReport(dir, b, at)
		if err != nil {
			return fmt.Errorf("html report: %w", err)
		}
		log.Info("wildtag: report saved", "format", "html", "path", path)
	}
	return nil
}
