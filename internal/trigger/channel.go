package trigger

import (
	"time"
)

// Trigger is an out-of-band request to scrape one source immediately.
type Trigger struct {
	// Source is the identifier recovered from the marker filename.
	Source string
	// Path is the marker file backing the request.
	Path string
}

// Channel is the control surface between external actors and the scheduler
// loop. Implementations decide the mechanism (marker files today); the loop
// only depends on these three operations.
type Channel interface {
	// PendingTriggers lists outstanding requests in a deterministic order.
	// A missing watch location is equivalent to no pending requests.
	PendingTriggers() ([]Trigger, error)
	// Consume acknowledges a trigger so it is never serviced twice.
	Consume(t Trigger) error
	// ReadInterval returns the externally controlled wait between successful
	// cycles. It re-reads the backing setting on every call and falls back to
	// a default when the setting is absent or malformed.
	ReadInterval() time.Duration
}
