package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkkim74/stockrun/internal/config"
	"github.com/jkkim74/stockrun/internal/logstore"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect per-run log files",
	}

	cmd.AddCommand(newLogsListCmd())
	cmd.AddCommand(newLogsShowCmd())
	cmd.AddCommand(newLogsPruneCmd())

	return cmd
}

func openLogStore() (*logstore.Store, error) {
	cfg, err := config.LoadSettings(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return logstore.New(cfg.LogsDir), nil
}

func newLogsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List log files, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLogStore()
			if err != nil {
				return err
			}

			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(os.Stdout, "no logs under %s\n", store.Dir())
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(os.Stdout, "%s  %-14s %8d  %s\n",
					e.StartedAt.Format("2006-01-02 15:04:05"), e.Task, e.Size, e.Path)
			}
			return nil
		},
	}
}

func newLogsShowCmd() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print a log file (latest if no path given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLogStore()
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				latest, err := store.Latest()
				if err != nil {
					return err
				}
				if latest == nil {
					return fmt.Errorf("no logs under %s", store.Dir())
				}
				path = latest.Path
			}

			if follow {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
				defer stop()
				return logstore.Follow(ctx, path, os.Stdout)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			_, err = io.Copy(os.Stdout, f)
			return err
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream the log as it grows (Ctrl+C to stop)")

	return cmd
}

func newLogsPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest N log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLogStore()
			if err != nil {
				return err
			}

			start := time.Now()
			removed, err := store.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "pruned %d log file(s) in %s\n", removed, time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 30, "number of newest logs to keep")

	return cmd
}
