// Package feed implements the RSS/Atom fetcher strategy used by the
// GitHub releases, Reddit, YouTube, and news-feed sources.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/fetch"
)

const defaultEntryLimit = 20

// Fetcher pulls a feed URL and maps its entries to items.
type Fetcher struct {
	client *http.Client
	limit  int
}

var _ fetch.Fetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; entry limit defaults to 20 per feed.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Fetcher{client: client, limit: defaultEntryLimit}
}

// Name identifies the strategy inside the registry.
func (f *Fetcher) Name() string {
	return "feed"
}

// Fetch downloads and parses the configured feed. Options: "limit"
// overrides the per-feed entry cap, "token" adds a bearer token.
func (f *Fetcher) Fetch(ctx context.Context, req fetch.Request) ([]domain.Item, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no feed url for source %s", req.SourceID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "anime-ai-digest/1.0")
	if token := req.Options["token"]; token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned %s", req.SourceID, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	limit := f.limit
	if v := req.Options["limit"]; v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 {
			limit = n
		}
	}

	items := make([]domain.Item, 0, min(limit, len(parsed.Items)))
	for i, entry := range parsed.Items {
		if i >= limit {
			break
		}
		items = append(items, mapEntry(entry, req))
	}
	return items, nil
}

func mapEntry(entry *gofeed.Item, req fetch.Request) domain.Item {
	body := entry.Description
	if body == "" {
		body = entry.Content
	}

	var published *time.Time
	switch {
	case entry.PublishedParsed != nil:
		t := entry.PublishedParsed.UTC()
		published = &t
	case entry.UpdatedParsed != nil:
		t := entry.UpdatedParsed.UTC()
		published = &t
	}

	meta := domain.Metadata{}
	if entry.GUID != "" {
		meta["guid"] = entry.GUID
	}
	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		meta["author"] = entry.Authors[0].Name
	}

	return domain.Item{
		SourceID:         req.SourceID,
		SourceCategory:   req.Category,
		Title:            entry.Title,
		URL:              entry.Link,
		PublishedAt:      published,
		RawBody:          body,
		OriginalLanguage: req.Language,
		Metadata:         meta,
	}
}
