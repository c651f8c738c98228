package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkkim74/stockrun/internal/config"
	"github.com/jkkim74/stockrun/internal/history"
	"github.com/jkkim74/stockrun/internal/notify"
	"github.com/jkkim74/stockrun/internal/reporter"
	"github.com/jkkim74/stockrun/internal/runner"
)

// ChildExitError carries the child's non-zero exit code to main, which
// propagates it as the process exit code.
type ChildExitError struct {
	Code int
}

func (e *ChildExitError) Error() string {
	return fmt.Sprintf("report script exited with code %d", e.Code)
}

func newRunCmd() *cobra.Command {
	var (
		workDir     string
		interpreter string
		script      string
		maxRuntime  time.Duration
		idleTimeout time.Duration
		noNotify    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the report script once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("workdir") {
				cfg.WorkDir = workDir
			}
			if cmd.Flags().Changed("interpreter") {
				cfg.Interpreter = interpreter
			}
			if cmd.Flags().Changed("script") {
				cfg.Script = script
			}
			if cmd.Flags().Changed("max-runtime") {
				cfg.MaxRuntime = maxRuntime
			}
			if cmd.Flags().Changed("idle-timeout") {
				cfg.IdleTimeout = idleTimeout
			}
			if noNotify {
				cfg.Notify.Mode = "off"
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			// setup signal handling
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "\ninterrupted — stopping report run...")
				cancel()
			}()

			res, err := executeOnce(ctx, cfg)
			if err != nil {
				return err
			}

			switch res.Status {
			case runner.StatusSuccess:
				return nil
			case runner.StatusChildError:
				return &ChildExitError{Code: res.ExitCode()}
			default:
				return fmt.Errorf("%s", res.Reason)
			}
		},
	}

	cmd.Flags().StringVar(&workDir, "workdir", ".", "directory the report script runs in")
	cmd.Flags().StringVar(&interpreter, "interpreter", "python", "interpreter executable")
	cmd.Flags().StringVar(&script, "script", "stock_report.py", "report script path")
	cmd.Flags().DurationVar(&maxRuntime, "max-runtime", 0, "kill the script after this duration (0 = no limit)")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "kill the script after this long without output (0 = off)")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "skip result notification")

	return cmd
}

// executeOnce is the shared execution core used by run and schedule:
// lock, run, record history, notify, print.
func executeOnce(ctx context.Context, cfg *config.Settings) (*runner.Result, error) {
	if err := runner.Acquire(cfg.WorkDir, cfg.Task); err != nil {
		return nil, err
	}
	defer runner.Release(cfg.WorkDir)

	res := runner.Run(ctx, runner.Job{
		Name:        cfg.Task,
		WorkDir:     cfg.WorkDir,
		Command:     cfg.Command(),
		Env:         cfg.Env,
		LogsDir:     cfg.LogsDir,
		MaxRuntime:  cfg.MaxRuntime,
		IdleTimeout: cfg.IdleTimeout,
	})

	recordRun(cfg, res)
	sendNotification(ctx, cfg, res)
	reporter.PrintResult(os.Stdout, res)

	return res, nil
}

// recordRun appends the result to the history database. History is
// best-effort: a storage problem must not change the run's exit code.
func recordRun(cfg *config.Settings, res *runner.Result) {
	store, err := history.New(cfg.HistoryDB)
	if err != nil {
		slog.Warn("open history db", "path", cfg.HistoryDB, "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.Record(res); err != nil {
		slog.Warn("record run history", "error", err)
	}
}

// sendNotification delivers the result to the configured channel.
// Delivery failure never changes the run's exit code.
func sendNotification(ctx context.Context, cfg *config.Settings, res *runner.Result) {
	if !notify.Wanted(cfg.Notify.On, res.Failed()) {
		return
	}

	n, err := notify.New(cfg.Notify, cfg.WorkDir)
	if err != nil {
		slog.Warn("build notifier", "error", err)
		return
	}
	if n == nil {
		return
	}

	if err := n.Send(ctx, notify.FromResult(res)); err != nil {
		slog.Warn("send notification", "channel", n.Name(), "error", err)
	}
}
