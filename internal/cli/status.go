package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jkkim74/stockrun/internal/config"
	"github.com/jkkim74/stockrun/internal/history"
	"github.com/jkkim74/stockrun/internal/reporter"
	"github.com/jkkim74/stockrun/internal/runner"
)

func newStatusCmd() *cobra.Command {
	var (
		limit int
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			store, err := history.New(cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer func() { _ = store.Close() }()

			if watch {
				model := reporter.NewWatchModel(
					func() ([]history.Run, error) { return store.Recent(limit) },
					func() *runner.LockInfo {
						info, err := runner.ReadLock(cfg.WorkDir)
						if err != nil {
							return nil
						}
						return info
					},
				)
				_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
				return err
			}

			runs, err := store.Recent(limit)
			if err != nil {
				return err
			}
			reporter.PrintHistory(os.Stdout, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().BoolVar(&watch, "watch", false, "live view, refreshed every second")

	return cmd
}
