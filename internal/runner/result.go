package runner

import "time"

// Status classifies how an invocation ended.
type Status string

const (
	// StatusSuccess means the child process ran and exited 0.
	StatusSuccess Status = "SUCCESS"
	// StatusChildError means the child process ran and exited non-zero.
	StatusChildError Status = "CHILD_ERROR"
	// StatusSetupError means the run never got a child exit code:
	// the logs directory or log file could not be created, or the
	// child could not be spawned.
	StatusSetupError Status = "SETUP_ERROR"
)

// Result holds the outcome of one invocation. The process exit code is
// derived from it only at the CLI boundary via ExitCode.
type Result struct {
	RunID     string
	Task      string
	Status    Status
	ChildCode int    // child's exit code, meaningful for StatusChildError
	Reason    string // setup failure reason, set for StatusSetupError
	LogPath   string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	LastMsg   string // last non-empty log line
}

// ExitCode maps the tagged outcome to a process exit code: 0 on
// success, the child's own code on child failure, 1 on setup failure.
func (r *Result) ExitCode() int {
	switch r.Status {
	case StatusSuccess:
		return 0
	case StatusChildError:
		if r.ChildCode != 0 {
			return r.ChildCode
		}
		return 1
	default:
		return 1
	}
}

// Failed reports whether the invocation ended in any failure state.
func (r *Result) Failed() bool {
	return r.Status != StatusSuccess
}
