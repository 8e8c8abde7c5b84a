package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter renders a finalized report.
type Formatter interface {
	Format(w io.Writer, r *Report) error
}

// TextFormatter formats reports as a human-readable summary.
type TextFormatter struct{}

// NewTextFormatter creates a text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format writes the header, every bucket and a final verdict.
func (f *TextFormatter) Format(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}

	ew.printf("docsync run %s\n", r.RunID)
	if r.Revision != "" {
		ew.printf("Source revision: %s\n", r.Revision)
	}
	ew.printf("State: %s  Outcome: %s  Entities: %d  Pages: %d\n", r.State, r.Outcome, r.Entities, r.Pages)
	ew.println(strings.Repeat("━", 60))

	for _, b := range r.Buckets {
		ew.printf("\n%s (%d)\n", strings.ToUpper(string(b.Severity)), len(b.Issues))
		for _, is := range b.Issues {
			ew.printf("  %s %s: %s\n", icon(is.Severity), location(is), is.Message)
			ew.printf("      [%s]\n", is.Category)
		}
	}

	if len(r.Stages) > 0 {
		ew.println()
		ew.println("Stages:")
		for _, st := range r.Stages {
			ew.printf("  %-14s %6dms  %s\n", st.Stage, st.DurationMS, st.Result)
		}
	}

	if r.Diff != nil {
		ew.println()
		ew.printf("Since run %s: %d new, %d resolved, %d unchanged\n",
			r.Diff.PreviousRunID, len(r.Diff.New), len(r.Diff.Resolved), r.Diff.Unchanged)
		for _, is := range r.Diff.New {
			ew.printf("  + %s %s [%s]\n", is.Severity, location(is), is.Category)
		}
		for _, is := range r.Diff.Resolved {
			ew.printf("  - %s %s [%s]\n", is.Severity, location(is), is.Category)
		}
	}

	ew.println(strings.Repeat("━", 60))
	ew.printf("Results: %d critical, %d high, %d medium, %d low, %d info\n",
		r.Counts[SeverityCritical], r.Counts[SeverityHigh], r.Counts[SeverityMedium],
		r.Counts[SeverityLow], r.Counts[SeverityInfo])

	switch r.Outcome {
	case OutcomeFailed:
		ew.println("❌ Critical issues block publication.")
	case OutcomeWarnings:
		ew.println("⚠️  Documentation has warnings. Publication is not blocked.")
	default:
		ew.println("✨ All documentation passes validation!")
	}
	return ew.err
}

func icon(s Severity) string {
	switch s {
	case SeverityCritical:
		return "✗"
	case SeverityHigh, SeverityMedium:
		return "⚠"
	default:
		return "ℹ"
	}
}

func location(is Issue) string {
	var parts []string
	if is.Page != "" {
		parts = append(parts, is.Page)
	}
	if is.File != "" {
		f := is.File
		if is.Line > 0 {
			f = fmt.Sprintf("%s:%d", f, is.Line)
		}
		parts = append(parts, "("+f+")")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// errWriter remembers the first write error so formatting code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, format, args...)
	}
}

func (e *errWriter) println(args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintln(e.w, args...)
	}
}

// JSONFormatter formats reports as indented JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Format(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// NewFormatter creates the appropriate formatter based on format string.
func NewFormatter(format string) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	default:
		return NewTextFormatter()
	}
}
