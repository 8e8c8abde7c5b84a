package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: ExitOK},
		{name: "config error", err: ConfigError("bad config").Build(), expected: ExitConfig},
		{name: "storage error", err: StorageError("history unavailable").Build(), expected: ExitExternal},
		{name: "extraction error", err: NewError(CategoryExtraction, "source dir unreadable").Build(), expected: ExitPipeline},
		{name: "internal error", err: InternalError("boom").Build(), expected: ExitInternal},
		{name: "wrapped classified error", err: fmt.Errorf("outer: %w", ConfigError("bad").Build()), expected: ExitConfig},
		{name: "critical issues", err: fmt.Errorf("run: %w", ErrCriticalIssues), expected: ExitCriticalIssues},
		{name: "unclassified error", err: stderrors.New("unknown"), expected: ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)

	err := ConfigError("missing source.directory").Build()
	if got := quiet.FormatError(err); got != "Error: missing source.directory" {
		t.Errorf("unexpected quiet format: %q", got)
	}
	if got := verbose.FormatError(err); got != err.Error() {
		t.Errorf("verbose format should be full error, got %q", got)
	}
	if got := quiet.FormatError(InternalError("x").Build()); got != "Internal error occurred (use -v for details)" {
		t.Errorf("unexpected internal format: %q", got)
	}
	if got := quiet.FormatError(stderrors.New("plain")); got != "Error: plain" {
		t.Errorf("unexpected plain format: %q", got)
	}
}
