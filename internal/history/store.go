// Package history keeps the issues of past runs so a run can be compared
// with the one before it. It is never consulted for correctness.
package history

import (
	"context"
	"time"

	"git.home.luguber.info/inful/docsync/internal/report"
)

// Run is the stored summary of one pipeline run.
type Run struct {
	ID       string
	Start    time.Time
	End      time.Time
	State    string
	Outcome  report.Outcome
	Revision string
	Pages    int
	Entities int
	Critical int
	Issues   int
}

// Store defines how run history is persisted.
type Store interface {
	// Record stores a finalized report and its issues.
	Record(ctx context.Context, r *report.Report) error

	// Latest returns the most recent run other than excludeRunID with its
	// issues; ok is false when there is none.
	Latest(ctx context.Context, excludeRunID string) (run Run, issues []report.Issue, ok bool, err error)

	// Runs lists the most recent runs, newest first.
	Runs(ctx context.Context, limit int) ([]Run, error)

	Close() error
}
