// Package reporter renders run results and history for the terminal.
package reporter

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jkkim74/stockrun/internal/history"
	"github.com/jkkim74/stockrun/internal/runner"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
)

// PrintResult writes a one-run summary after an invocation.
func PrintResult(w io.Writer, res *runner.Result) {
	switch res.Status {
	case runner.StatusSuccess:
		fmt.Fprintf(w, "%s %s (%s)\n", okStyle.Render("✓"), res.Task, res.Duration.Truncate(time.Second))
	case runner.StatusChildError:
		fmt.Fprintf(w, "%s %s exit code %d (%s)\n", failStyle.Render("✗"), res.Task, res.ChildCode, res.Duration.Truncate(time.Second))
	default:
		fmt.Fprintf(w, "%s %s %s\n", warnStyle.Render("!"), res.Task, res.Reason)
	}
	if res.LogPath != "" {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render("log: "+res.LogPath))
	}
	if res.Failed() && res.LastMsg != "" {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render("last: "+res.LastMsg))
	}
}

// PrintHistory writes recent runs, newest first.
func PrintHistory(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}

	fmt.Fprintln(w, headerStyle.Render("recent runs"))
	for _, r := range runs {
		fmt.Fprintln(w, historyLine(r))
	}
}

func historyLine(r history.Run) string {
	mark := okStyle.Render("✓")
	detail := ""
	switch r.Status {
	case runner.StatusChildError:
		mark = failStyle.Render("✗")
		detail = fmt.Sprintf(" exit %d", r.ExitCode)
	case runner.StatusSetupError:
		mark = warnStyle.Render("!")
		detail = " " + r.Reason
	}

	return fmt.Sprintf("  %s %s  %-14s %8s%s",
		mark,
		r.StartedAt.Format("2006-01-02 15:04:05"),
		r.Task,
		r.Duration.Truncate(time.Second),
		detail,
	)
}
