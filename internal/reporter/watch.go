package reporter

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jkkim74/stockrun/internal/history"
	"github.com/jkkim74/stockrun/internal/runner"
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var helpStyle = dimStyle

type tickMsg time.Time

// WatchModel is the bubbletea model for `stockrun status --watch`:
// a periodically refreshed view of the run history and any run that is
// currently in flight.
type WatchModel struct {
	fetch    func() ([]history.Run, error)
	lockInfo func() *runner.LockInfo // nil when no run is in flight

	runs   []history.Run
	err    error
	frame  int
	height int
}

// NewWatchModel creates the watch model. fetch supplies recent runs,
// lockInfo the in-flight run if any.
func NewWatchModel(fetch func() ([]history.Run, error), lockInfo func() *runner.LockInfo) WatchModel {
	return WatchModel{fetch: fetch, lockInfo: lockInfo}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tickMsg:
		m.runs, m.err = m.fetch()
		m.frame++
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.height = msg.Height
	}

	return m, nil
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("stockrun — run history"))
	b.WriteString("\n\n")

	if lock := m.lockInfo(); lock != nil {
		spin := spinnerChars[m.frame%len(spinnerChars)]
		elapsed := time.Since(lock.StartedAt).Truncate(time.Second)
		fmt.Fprintf(&b, "%s running %s (PID %d, %s)\n\n", spin, lock.Task, lock.PID, elapsed)
	}

	if m.err != nil {
		fmt.Fprintf(&b, "%s\n", failStyle.Render("history error: "+m.err.Error()))
	}

	rows := m.runs
	if max := m.visibleRows(); len(rows) > max {
		rows = rows[:max]
	}
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("no runs recorded yet"))
		b.WriteString("\n")
	}
	for _, r := range rows {
		b.WriteString(historyLine(r))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}

func (m WatchModel) visibleRows() int {
	// header(2) + in-flight(2) + blank(1) + help(1)
	reserved := 6
	if m.height <= reserved {
		return 10
	}
	return m.height - reserved
}
