package domain

import "time"

// RunStatus enumerates terminal and in-flight pipeline states.
type RunStatus string

const (
	RunRunning         RunStatus = "running"
	RunCompleted       RunStatus = "completed"
	RunPartial         RunStatus = "partial"
	RunFailed          RunStatus = "failed"
	RunSkippedFewItems RunStatus = "skipped_insufficient_items"
)

// SourceError records a single fetcher failure without aborting the run.
type SourceError struct {
	SourceID  string
	Message   string
	Timestamp time.Time
}

// FetchReport aggregates one fan-out pass over all enabled sources.
// Succeeded counts every source whose fetch returned nil error, so a
// healthy source with nothing new still counts.
type FetchReport struct {
	Items     []Item
	Errors    []SourceError
	Succeeded int
}

// Run represents one pipeline execution. Created at pipeline start,
// mutated by each stage, terminal status set at the end or on the first
// fatal stage failure.
type Run struct {
	ID               string
	StartedAt        time.Time
	CompletedAt      *time.Time
	Status           RunStatus
	ItemsFetched     int
	ItemsNew         int
	ItemsScored      int
	SourcesSucceeded int
	SourcesFailed    int
	Errors           []SourceError
	OutputMarkdown   string
	OutputHTML       string
}
