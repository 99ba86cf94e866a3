package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shu-bamma/anime-ai-digest/internal/dedupe"
	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
	"github.com/shu-bamma/anime-ai-digest/internal/scoring"
	"github.com/shu-bamma/anime-ai-digest/internal/selection"
)

const (
	insertBatchSize = 50
	topScoredLimit  = 1000
)

// Options bound the digest produced by a run.
type Options struct {
	Title       string
	WindowHours int
	MaxItems    int
	MinItems    int
	OutputDir   string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ItemSource
	Items      ports.ItemStore
	Scores     ports.ScoreStore
	Runs       ports.RunStore
	Summaries  ports.SummaryStore
	Translator ports.Translator
	Summarizer ports.Summarizer
	Renderer   ports.Renderer
	Mailer     ports.Mailer
	Scorer     *scoring.Scorer
	Caps       selection.Caps
	Options    Options
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline implements the fetch, dedup, score, select, digest workflow.
// Source failures and delivery failures degrade a run to partial; only
// storage failures on the critical path fail it outright.
type Pipeline struct {
	source     ports.ItemSource
	items      ports.ItemStore
	scores     ports.ScoreStore
	runs       ports.RunStore
	summaries  ports.SummaryStore
	translator ports.Translator
	summarizer ports.Summarizer
	renderer   ports.Renderer
	mailer     ports.Mailer
	scorer     *scoring.Scorer
	caps       selection.Caps
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:     deps.Source,
		items:      deps.Items,
		scores:     deps.Scores,
		runs:       deps.Runs,
		summaries:  deps.Summaries,
		translator: deps.Translator,
		summarizer: deps.Summarizer,
		renderer:   deps.Renderer,
		mailer:     deps.Mailer,
		scorer:     deps.Scorer,
		caps:       deps.Caps,
		opts:       deps.Options,
		logger:     deps.Logger,
		now:        now,
	}
}

// Run executes one full pipeline pass and records its lifecycle.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.source == nil || p.items == nil || p.scores == nil || p.runs == nil {
		return fmt.Errorf("pipeline missing required collaborators")
	}

	run, err := p.runs.CreateRun(ctx)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	p.info("run started", "runId", run.ID)

	degraded := false
	fail := func(stage string, err error) error {
		run.Status = domain.RunFailed
		run.Errors = append(run.Errors, domain.SourceError{
			SourceID:  stage,
			Message:   err.Error(),
			Timestamp: p.now(),
		})
		p.finalize(ctx, &run)
		return fmt.Errorf("%s: %w", stage, err)
	}

	report := p.source.FetchAll(ctx)
	items := report.Items
	run.ItemsFetched = len(items)
	run.Errors = append(run.Errors, report.Errors...)
	run.SourcesSucceeded = report.Succeeded
	run.SourcesFailed = len(report.Errors)
	if len(report.Errors) > 0 {
		degraded = true
		p.warn("some sources failed", "failed", len(report.Errors))
	}

	items = dedupe.ByURL(items)
	fetchedAt := p.now().UTC()
	for i := range items {
		items[i].ContentHash = dedupe.Fingerprint(items[i].SourceID, items[i].URL, items[i].Title)
		if items[i].FetchedAt.IsZero() {
			items[i].FetchedAt = fetchedAt
		}
	}

	fresh := make([]domain.Item, 0, len(items))
	for _, item := range items {
		exists, err := p.items.ItemExists(ctx, item.ContentHash)
		if err != nil {
			return fail("check existing", err)
		}
		if !exists {
			fresh = append(fresh, item)
		}
	}
	p.info("deduplicated batch", "fetched", run.ItemsFetched, "fresh", len(fresh))

	if p.translator != nil {
		for i := range fresh {
			if err := p.translator.TranslateItem(ctx, &fresh[i]); err != nil {
				p.warn("translation failed", "itemUrl", fresh[i].URL, "error", err)
			}
		}
	}

	for start := 0; start < len(fresh); start += insertBatchSize {
		end := min(start+insertBatchSize, len(fresh))
		inserted, err := p.items.InsertItems(ctx, fresh[start:end])
		if err != nil {
			degraded = true
			run.Errors = append(run.Errors, domain.SourceError{
				SourceID:  "store",
				Message:   fmt.Sprintf("insert batch at %d: %v", start, err),
				Timestamp: p.now(),
			})
			continue
		}
		run.ItemsNew += inserted
	}

	unscored, err := p.items.UnscoredItemsSince(ctx, run.ID, p.opts.WindowHours)
	if err != nil {
		return fail("load unscored", err)
	}

	if p.scorer != nil && len(unscored) > 0 {
		records := make([]domain.ScoreRecord, 0, len(unscored))
		for _, item := range unscored {
			records = append(records, p.scorer.Score(item, run.ID))
		}
		scored, err := p.scores.InsertScores(ctx, records)
		if err != nil {
			return fail("insert scores", err)
		}
		run.ItemsScored = scored
	}
	p.info("scored window", "runId", run.ID, "scored", run.ItemsScored)

	top, err := p.scores.TopScored(ctx, run.ID, topScoredLimit)
	if err != nil {
		return fail("load top scored", err)
	}

	selected := selection.Select(top, p.caps)
	if p.opts.MaxItems > 0 && len(selected) > p.opts.MaxItems {
		selected = selected[:p.opts.MaxItems]
	}

	if len(selected) < p.opts.MinItems {
		run.Status = domain.RunSkippedFewItems
		p.finalize(ctx, &run)
		p.info("run skipped, too few items", "runId", run.ID, "selected", len(selected))
		return nil
	}

	editorial := domain.Editorial{Summaries: map[string]string{}}
	if p.summarizer != nil {
		editorial, err = p.summarizer.Summarize(ctx, selected)
		if err != nil {
			degraded = true
			run.Errors = append(run.Errors, domain.SourceError{
				SourceID:  "summarizer",
				Message:   err.Error(),
				Timestamp: p.now(),
			})
			editorial = domain.Editorial{Summaries: map[string]string{}}
		}
	}
	if p.summaries != nil && len(editorial.Summaries) > 0 {
		if _, err := p.summaries.InsertSummaries(ctx, run.ID, editorial.Summaries); err != nil {
			degraded = true
			p.warn("persist summaries failed", "error", err)
		}
	}

	digest := domain.Digest{
		RunID:       run.ID,
		GeneratedAt: p.now().UTC(),
		WindowHours: p.opts.WindowHours,
		Items:       selected,
		Editorial:   editorial,
	}

	if p.renderer != nil {
		markdown, html, err := p.renderer.Render(digest)
		if err != nil {
			return fail("render digest", err)
		}
		if err := p.writeOutputs(&run, digest.GeneratedAt, markdown, html); err != nil {
			degraded = true
			p.warn("write outputs failed", "error", err)
		}

		if p.mailer != nil {
			subject := fmt.Sprintf("%s · %s", p.opts.Title, digest.GeneratedAt.Format("Jan 2, 2006"))
			if err := p.mailer.Send(ctx, subject, html); err != nil {
				degraded = true
				run.Errors = append(run.Errors, domain.SourceError{
					SourceID:  "mailer",
					Message:   err.Error(),
					Timestamp: p.now(),
				})
			}
		}
	}

	if degraded {
		run.Status = domain.RunPartial
	} else {
		run.Status = domain.RunCompleted
	}
	p.finalize(ctx, &run)
	p.info("run finished", "runId", run.ID, "status", run.Status, "selected", len(selected))
	return nil
}

func (p *Pipeline) writeOutputs(run *domain.Run, generatedAt time.Time, markdown, html string) error {
	if p.opts.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	stamp := generatedAt.Format("2006-01-02")
	mdPath := filepath.Join(p.opts.OutputDir, fmt.Sprintf("digest_%s.md", stamp))
	htmlPath := filepath.Join(p.opts.OutputDir, fmt.Sprintf("digest_%s.html", stamp))

	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}

	run.OutputMarkdown = mdPath
	run.OutputHTML = htmlPath
	return nil
}

func (p *Pipeline) finalize(ctx context.Context, run *domain.Run) {
	completed := p.now().UTC()
	run.CompletedAt = &completed
	if err := p.runs.UpdateRun(ctx, *run); err != nil {
		p.warn("persist run failed", "runId", run.ID, "error", err)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
