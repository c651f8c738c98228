package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jkkim74/stockrun/internal/config"
	"github.com/jkkim74/stockrun/internal/sched"
)

func newScheduleCmd() *cobra.Command {
	var cronExpr string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the report script on a cron schedule",
		Long: `Schedule runs as a foreground daemon, firing the report job at each
cron expression match (minute hour dom month dow). A fire that lands
while the previous run is still going is skipped. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("cron") {
				cfg.Schedule = cronExpr
			}
			if cfg.Schedule == "" {
				return fmt.Errorf("no schedule configured: set schedule in %s or pass --cron", configFile)
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			scheduler, err := sched.New(cfg.Schedule, func(ctx context.Context) {
				res, err := executeOnce(ctx, cfg)
				if err != nil {
					slog.Error("scheduled run failed to start", "error", err)
					return
				}
				if res.Failed() {
					slog.Error("scheduled run failed", "status", res.Status, "exit_code", res.ExitCode(), "log", res.LogPath)
				} else {
					slog.Info("scheduled run completed", "duration", res.Duration, "log", res.LogPath)
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("scheduler started", "schedule", cfg.Schedule, "workdir", cfg.WorkDir)
			if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintln(os.Stdout, "scheduler stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", `cron expression, e.g. "15 22 * * *"`)

	return cmd
}
