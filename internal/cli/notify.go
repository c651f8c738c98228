package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkkim74/stockrun/internal/config"
	"github.com/jkkim74/stockrun/internal/notify"
	"github.com/jkkim74/stockrun/internal/runner"
)

func newNotifyCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification through the configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("mode") {
				cfg.Notify.Mode = mode
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			n, err := notify.New(cfg.Notify, cfg.WorkDir)
			if err != nil {
				return err
			}
			if n == nil {
				return fmt.Errorf("notifications are off: set notify.mode in %s or pass --mode", configFile)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			msg := notify.Message{
				Task:      cfg.Task,
				Status:    runner.StatusSuccess,
				StartedAt: time.Now(),
				LastMsg:   "test notification from stockrun",
			}
			if err := n.Send(ctx, msg); err != nil {
				return fmt.Errorf("send via %s: %w", n.Name(), err)
			}

			fmt.Fprintf(os.Stdout, "test notification sent via %s\n", n.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "override channel: slack, telegram, file, composite")

	return cmd
}
