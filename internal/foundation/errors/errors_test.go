package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "docsync.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "docsync.yaml" {
			t.Errorf("expected context file=docsync.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		inner := ConfigError("test error").Build()
		wrapped := fmt.Errorf("load: %w", inner)

		if !HasCategory(wrapped, CategoryConfig) {
			t.Error("expected wrapped error to have config category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected plain errors to classify as internal")
		}
		if inner.CanRetry() {
			t.Error("expected config error to not be retryable")
		}
		if !inner.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := NewError(CategoryExtraction, "parse failed").Build()
		withPath := base.WithContext("path", "model.js")

		if _, ok := base.Context().Get("path"); ok {
			t.Error("expected original error context to be unchanged")
		}
		if p, _ := withPath.Context().GetString("path"); p != "model.js" {
			t.Errorf("expected path context, got %q", p)
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, CategoryNetwork, "nats unavailable").
		Warning().
		Retryable().
		WithContext("url", "nats://localhost:4222").
		Build()

	if err.Severity() != SeverityWarning {
		t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
	}
	if err.RetryStrategy() != RetryBackoff {
		t.Errorf("expected retry strategy %s, got %s", RetryBackoff, err.RetryStrategy())
	}
	if !errors.Is(err, originalErr) {
		t.Error("expected error to wrap original error")
	}
	if !errors.Is(err, NewError(CategoryNetwork, "nats unavailable").Build()) {
		t.Error("expected Is to match on category and message")
	}

	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, RetryUserAction},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem, RetryBackoff},
		{"StorageError", StorageError("x"), CategoryStorage, RetryBackoff},
		{"PipelineError", PipelineError("x"), CategoryPipeline, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := tt.builder.Build()
			if built.Category() != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, built.Category())
			}
			if built.RetryStrategy() != tt.retry {
				t.Errorf("expected retry %s, got %s", tt.retry, built.RetryStrategy())
			}
		})
	}
}

func TestErrorContext_Merge(t *testing.T) {
	a := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	b := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := a.Merge(b)
	if v, _ := merged.GetString("shared"); v != "overridden" {
		t.Errorf("expected shared=overridden, got %s", v)
	}
	if v, _ := merged.GetString("key1"); v != "value1" {
		t.Errorf("expected key1=value1, got %s", v)
	}
}
