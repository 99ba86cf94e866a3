package domain

import "time"

// Editorial holds the LLM-produced framing for one digest issue.
type Editorial struct {
	Summaries  map[string]string // item id → two-sentence summary
	Themes     []string
	Highlights string
}

// Digest is everything the renderer needs to emit one issue.
type Digest struct {
	RunID       string
	GeneratedAt time.Time
	WindowHours int
	Items       []ScoredItem
	Editorial   Editorial
}
