package report

import (
	"fmt"
	"slices"
	"time"
)

// SchemaVersion is bumped whenever the JSON layout changes incompatibly.
const SchemaVersion = 1

// Outcome is the publication verdict of a run.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeWarnings Outcome = "passed_with_warnings"
	OutcomeFailed   Outcome = "failed"
)

// StageTiming records how long one pipeline stage ran and how it ended.
type StageTiming struct {
	Stage      string `json:"stage"`
	DurationMS int64  `json:"duration_ms"`
	Result     string `json:"result"` // success | issues | failed | timeout | skipped
}

// Transition is one recorded state change of the orchestrator.
type Transition struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// Bucket groups issues of one severity.
type Bucket struct {
	Severity Severity `json:"severity"`
	Issues   []Issue  `json:"issues"`
}

// Report is the single terminal artifact of a pipeline run. It is written
// even when the run fails so failure is diagnosable from it alone.
type Report struct {
	SchemaVersion int              `json:"schema_version"`
	RunID         string           `json:"run_id"`
	Version       string           `json:"docsync_version,omitempty"`
	Revision      string           `json:"source_revision,omitempty"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	State         string           `json:"state"`
	Outcome       Outcome          `json:"outcome"`
	Entities      int              `json:"entities"`
	Pages         int              `json:"pages"`
	Counts        map[Severity]int `json:"counts"`
	Buckets       []Bucket         `json:"buckets"`
	Stages        []StageTiming    `json:"stages"`
	Transitions   []Transition     `json:"transitions"`
	Diff          *Diff            `json:"diff,omitempty"`

	issues []Issue
}

// NewReport starts an empty report for runID.
func NewReport(runID string, start time.Time) *Report {
	return &Report{
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		Start:         start,
		Counts:        map[Severity]int{},
	}
}

// AddIssues appends issues; ordering is applied by Finalize.
func (r *Report) AddIssues(issues ...Issue) {
	r.issues = append(r.issues, issues...)
}

// Issues returns a copy of all issues in report order.
func (r *Report) Issues() []Issue {
	return slices.Clone(r.issues)
}

// HasCritical reports whether any issue blocks publication.
func (r *Report) HasCritical() bool {
	return slices.ContainsFunc(r.issues, Issue.IsCritical)
}

// CountCategory returns how many issues of category c were recorded.
func (r *Report) CountCategory(c Category) int {
	n := 0
	for _, is := range r.issues {
		if is.Category == c {
			n++
		}
	}
	return n
}

// RecordStage appends a stage timing.
func (r *Report) RecordStage(stage string, d time.Duration, result string) {
	r.Stages = append(r.Stages, StageTiming{Stage: stage, DurationMS: d.Milliseconds(), Result: result})
}

// Finalize sorts issues, computes counts and buckets and derives the outcome.
func (r *Report) Finalize(end time.Time, state string) {
	r.End = end
	r.State = state
	Sort(r.issues)

	r.Counts = make(map[Severity]int, len(Severities))
	r.Buckets = r.Buckets[:0]
	for _, sev := range Severities {
		var bucket []Issue
		for _, is := range r.issues {
			if is.Severity == sev {
				bucket = append(bucket, is)
			}
		}
		r.Counts[sev] = len(bucket)
		if len(bucket) > 0 {
			r.Buckets = append(r.Buckets, Bucket{Severity: sev, Issues: bucket})
		}
	}
	r.DeriveOutcome()
}

// DeriveOutcome sets Outcome from the recorded issues.
func (r *Report) DeriveOutcome() {
	switch {
	case r.HasCritical():
		r.Outcome = OutcomeFailed
	case len(r.issues) > 0 && slices.ContainsFunc(r.issues, func(i Issue) bool { return i.Severity != SeverityInfo }):
		r.Outcome = OutcomeWarnings
	default:
		r.Outcome = OutcomePassed
	}
}

// Summary returns a single-line summary suitable for logs.
func (r *Report) Summary() string {
	return fmt.Sprintf("run=%s state=%s outcome=%s entities=%d pages=%d critical=%d high=%d medium=%d low=%d info=%d duration=%s",
		r.RunID, r.State, r.Outcome, r.Entities, r.Pages,
		r.Counts[SeverityCritical], r.Counts[SeverityHigh], r.Counts[SeverityMedium],
		r.Counts[SeverityLow], r.Counts[SeverityInfo],
		r.End.Sub(r.Start).Truncate(time.Millisecond))
}

// restore rebuilds the flat issue list after JSON decoding.
func (r *Report) restore() {
	r.issues = r.issues[:0]
	for _, b := range r.Buckets {
		r.issues = append(r.issues, b.Issues...)
	}
	Sort(r.issues)
}
