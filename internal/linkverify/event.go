package linkverify

import (
	"time"
)

// BrokenLinkEvent describes an unreachable external link. It is published to
// NATS for downstream processing (e.g. opening tickets against the docs).
type BrokenLinkEvent struct {
	// Link information
	URL    string `json:"url"`
	Status int    `json:"status"` // HTTP status code (0 for transport errors)
	Error  string `json:"error"`

	// Where the link was written
	Page string `json:"page"`
	File string `json:"file"`
	Line int    `json:"line,omitempty"`

	// Verification metadata
	RunID         string    `json:"run_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	LastChecked   time.Time `json:"last_checked"`
	FailureCount  int       `json:"failure_count"`
	FirstFailedAt time.Time `json:"first_failed_at,omitzero"`
}
