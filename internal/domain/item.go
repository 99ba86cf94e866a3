package domain

import "time"

// Category buckets every source into one digest section.
type Category string

const (
	CategoryModels    Category = "models"
	CategoryIndustry  Category = "industry"
	CategoryCommunity Category = "community"
	CategoryYouTube   Category = "youtube"
	CategoryLegal     Category = "legal"
)

// Item is a unit of content produced by a source fetcher.
// ContentHash is derived once at ingestion and never changes; the two
// translated fields are the only values attached after the fact.
type Item struct {
	ID               string
	SourceID         string
	SourceCategory   Category
	Title            string
	URL              string
	PublishedAt      *time.Time
	RawBody          string
	OriginalLanguage string
	Metadata         Metadata
	ContentHash      string
	FetchedAt        time.Time
	TitleTranslated  string
	BodyTranslated   string
}

// DisplayTitle prefers the translated title when one exists.
func (i Item) DisplayTitle() string {
	if i.TitleTranslated != "" {
		return i.TitleTranslated
	}
	return i.Title
}

// DisplayBody prefers the translated body when one exists.
func (i Item) DisplayBody() string {
	if i.BodyTranslated != "" {
		return i.BodyTranslated
	}
	return i.RawBody
}

// Metadata carries per-source engagement signals without a shared schema.
// New signals appear per source over time, so this stays an open mapping
// with typed accessors rather than a fixed struct.
type Metadata map[string]any

// Engagement signal keys known to the scorer.
const (
	MetaStars     = "stars"
	MetaDownloads = "downloads"
	MetaFavorites = "favorites"
	MetaRating    = "rating"
	MetaScore     = "score"
)

// Number reads a numeric signal, tolerating the types that survive a
// JSON round trip through storage.
func (m Metadata) Number(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
