package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shu-bamma/anime-ai-digest/internal/config"
	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
)

// MultiSource implements ports.ItemSource over registered fetcher
// strategies. Each configured source runs in its own goroutine; a
// failing source is recorded and never aborts its siblings.
type MultiSource struct {
	registry *Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ItemSource = (*MultiSource)(nil)

// NewMultiSource wires the fetcher registry with config-defined sources.
func NewMultiSource(reg *Registry, sources []config.SourceConfig, log *slog.Logger) *MultiSource {
	return &MultiSource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// FetchAll runs every enabled source and collects successes and
// failures independently.
func (s *MultiSource) FetchAll(ctx context.Context) domain.FetchReport {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report domain.FetchReport
	)

	for _, src := range s.sources {
		if !src.IsEnabled() {
			continue
		}

		fetcher, err := s.registry.Resolve(src.Fetcher)
		if err != nil {
			report.Errors = append(report.Errors, domain.SourceError{
				SourceID:  src.ID,
				Message:   err.Error(),
				Timestamp: time.Now().UTC(),
			})
			continue
		}

		wg.Add(1)
		go func(src config.SourceConfig, fetcher Fetcher) {
			defer wg.Done()

			req := Request{
				SourceID: src.ID,
				Name:     src.Name,
				Category: domain.Category(src.Category),
				URL:      src.URL,
				Language: src.Language,
				Options:  src.Options,
			}

			fetched, err := fetcher.Fetch(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.debug("source failed", "source", src.ID, "error", err)
				report.Errors = append(report.Errors, domain.SourceError{
					SourceID:  src.ID,
					Message:   err.Error(),
					Timestamp: time.Now().UTC(),
				})
				return
			}
			// Counted even when fetched is empty; a quiet source is
			// still a healthy one.
			report.Succeeded++

			for i := range fetched {
				if fetched[i].SourceID == "" {
					fetched[i].SourceID = src.ID
				}
				if fetched[i].SourceCategory == "" {
					fetched[i].SourceCategory = domain.Category(src.Category)
				}
				if fetched[i].OriginalLanguage == "" {
					if src.Language != "" {
						fetched[i].OriginalLanguage = src.Language
					} else {
						fetched[i].OriginalLanguage = "en"
					}
				}
			}
			s.debug("source produced items", "source", src.ID, "count", len(fetched))
			report.Items = append(report.Items, fetched...)
		}(src, fetcher)
	}

	wg.Wait()
	s.debug("fetch done",
		"total_items", len(report.Items),
		"succeeded_sources", report.Succeeded,
		"failed_sources", len(report.Errors))
	return report
}

func (s *MultiSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
