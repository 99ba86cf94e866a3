package ports

import (
	"context"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
)

// ItemSource fans out across all registered source fetchers. A failing
// source never aborts its siblings; failures come back in the report
// alongside whatever items the healthy sources produced.
type ItemSource interface {
	FetchAll(ctx context.Context) domain.FetchReport
}

// ItemStore persists fetched items and answers dedup existence checks.
type ItemStore interface {
	ItemExists(ctx context.Context, contentHash string) (bool, error)
	InsertItems(ctx context.Context, items []domain.Item) (int, error)
	// UnscoredItemsSince returns items fetched within the window that
	// have no score for this run yet, transparently paging past any
	// single-query row limit.
	UnscoredItemsSince(ctx context.Context, runID string, windowHours int) ([]domain.Item, error)
}

// ScoreStore persists immutable score records and serves ranked reads.
type ScoreStore interface {
	InsertScores(ctx context.Context, records []domain.ScoreRecord) (int, error)
	TopScored(ctx context.Context, runID string, limit int) ([]domain.ScoredItem, error)
}

// RunStore tracks pipeline run lifecycle and counters.
type RunStore interface {
	CreateRun(ctx context.Context) (domain.Run, error)
	UpdateRun(ctx context.Context, run domain.Run) error
}

// SummaryStore persists per-item digest summaries.
type SummaryStore interface {
	InsertSummaries(ctx context.Context, runID string, summaries map[string]string) (int, error)
}

// Translator attaches English translations to non-English items.
type Translator interface {
	TranslateItem(ctx context.Context, item *domain.Item) error
}

// Summarizer is the opaque LLM step producing per-item summaries and
// the editorial framing for the digest.
type Summarizer interface {
	Summarize(ctx context.Context, items []domain.ScoredItem) (domain.Editorial, error)
}

// Renderer turns a digest into presentation documents.
type Renderer interface {
	Render(digest domain.Digest) (markdown, html string, err error)
}

// Mailer delivers the rendered digest to recipients.
type Mailer interface {
	Send(ctx context.Context, subject, html string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
