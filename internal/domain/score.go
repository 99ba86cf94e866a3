package domain

// ScoreRecord is the immutable per-(item, run) scoring result.
// Every component is rounded to 4 decimals and lies in [0,1].
type ScoreRecord struct {
	ItemID              string
	RunID               string
	TotalScore          float64
	RecencyScore        float64
	EngagementScore     float64
	KeywordScore        float64
	SourcePriorityScore float64
}

// ScoredItem joins a score row with its item for ranking and selection.
type ScoredItem struct {
	Score ScoreRecord
	Item  Item
}
