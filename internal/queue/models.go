package queue

import "time"

// Status enumerates the lifecycle states of a queued scrape item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Item is a single piece of pending ingestion work. Rows are written by the
// external scrape job; the scheduler and CLI only read them.
type Item struct {
	ID           int64
	Source       string
	URL          string
	Title        string
	Status       Status
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HealthSummary aggregates queue counts for diagnostic output.
type HealthSummary struct {
	Total     int
	Pending   int
	Claimed   int
	Completed int
	Failed    int
}

// DatabaseHealth reports low-level queue database diagnostics.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	TotalItems       int
	IntegrityCheck   bool
	Error            string
}
