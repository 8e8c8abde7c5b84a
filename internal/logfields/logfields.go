package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyDurationMS = "duration_ms"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyPage       = "page"
	KeyEntity     = "entity"
	KeySeverity   = "severity"
	KeyCategory   = "category"
	KeyCount      = "count"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(name string) slog.Attr     { return slog.String(KeyState, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func File(path string) slog.Attr      { return slog.String(KeyFile, path) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Page(path string) slog.Attr      { return slog.String(KeyPage, path) }
func Entity(name string) slog.Attr    { return slog.String(KeyEntity, name) }
func Severity(s string) slog.Attr     { return slog.String(KeySeverity, s) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
