// Package errors provides the classified error primitives used across docsync.
//
// Validation findings about documentation content are never Go errors; they
// are recorded as report issues. ClassifiedError is reserved for infrastructure
// failures (unreadable directories, broken configuration, storage outages)
// that a stage cannot turn into data.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "read source file").
//		WithContext("path", path).
//		Build()
package errors
