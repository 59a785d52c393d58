package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-wildtag/internal/config"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process the input directory on a cron schedule",
		Long: `Process the input directory repeatedly on a standard 5-field cron
schedule (minute hour day-of-month month day-of-week), for example
"*/30 * * * *" or "0 6 * * *". Accepted and rejected images are always
moved out of the input directory so each image is handled once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if v, _ := cmd.Flags().GetString("schedule"); v != "" {
				a.cfg.Watch.Schedule = v
			}
			sched, err := parseSchedule(a.cfg.Watch.Schedule)
			if err != nil {
				return err
			}

			opts, err := watchFlags(cmd, a.cfg)
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

			a.log.Info("wildtag: watch scheduled", "cron", a.cfg.Watch.Schedule, "input", opts.input)
			return runSchedule(ctx, a.log.Logger, sched, time.Now, func(ctx context.Context) error {
				_, err := runOnce(ctx, a, proc, hist, opts)
				return err
			})
		},
	}

	cmd.Flags().String("schedule", "", "cron schedule (default from config)")
	cmd.Flags().StringP("input", "i", "", "input directory containing images (default from config)")
	cmd.Flags().String("backup", "", "backup directory for original images (default <input>/backup)")
	cmd.Flags().String("report", "", "report format (json, html, both)")
	cmd.Flags().Int("workers", 0, "parallel analysis workers (default from config)")

	return cmd
}

// watchFlags applies the watch flags. Watch always runs in process mode and
// sorts, so every image leaves the input directory after its first tick.
func watchFlags(cmd *cobra.Command, cfg *config.Config) (runOptions, error) {
	cfg.Sort = true
	return runFlags(cmd, cfg)
}

func parseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("watch schedule is empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

// runSchedule calls run at every activation of sched until ctx is done.
// A failed run is logged and the loop continues.
func runSchedule(ctx context.Context, log *slog.Logger, sched cron.Schedule, now func() time.Time, run func(context.Context) error) error {
	for ctx.Err() == nil {
		t := now()
		next := sched.Next(t)
		wait := next.Sub(t)
		log.Info("wildtag: next run", "at", next.Format("Mon Jan 2 15:04"), "in", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			continue
		case <-timer.C:
		}

		if err := run(ctx); err != nil && ctx.Err() == nil {
			log.Error("wildtag: scheduled run failed", "error", err.Error())
		}
	}
	log.Info("wildtag: watch stopped")
	return nil
}
