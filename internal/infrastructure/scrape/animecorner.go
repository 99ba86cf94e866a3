// Package scrape implements HTML-scraping fetcher strategies for
// sources without a feed or API.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/fetch"
)

// AnimeCornerFetcher crawls the Anime Corner news listing and extracts
// article links with their publish dates.
type AnimeCornerFetcher struct {
	client *http.Client
	limit  int
}

var _ fetch.Fetcher = (*AnimeCornerFetcher)(nil)

// NewAnimeCornerFetcher wires an HTTP client; article limit defaults to 20.
func NewAnimeCornerFetcher(client *http.Client) *AnimeCornerFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &AnimeCornerFetcher{client: client, limit: 20}
}

// Name identifies the strategy inside the registry.
func (a *AnimeCornerFetcher) Name() string {
	return "animecorner"
}

// Fetch downloads the listing page and extracts one item per article.
func (a *AnimeCornerFetcher) Fetch(ctx context.Context, req fetch.Request) ([]domain.Item, error) {
	doc, err := a.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return a.extractArticles(doc, req), nil
}

func (a *AnimeCornerFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "anime-ai-digest/1.0")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anime corner returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *AnimeCornerFetcher) extractArticles(doc *goquery.Document, req fetch.Request) []domain.Item {
	var items []domain.Item

	doc.Find("article").EachWithBreak(func(i int, article *goquery.Selection) bool {
		if len(items) >= a.limit {
			return false
		}

		item, ok := parseArticle(article, req)
		if !ok {
			return true
		}
		items = append(items, item)
		return true
	})

	return items
}

func parseArticle(sel *goquery.Selection, req fetch.Request) (domain.Item, bool) {
	link := sel.Find("h3 a, h2 a").First()
	href, exists := link.Attr("href")
	title := strings.TrimSpace(link.Text())
	if !exists || title == "" {
		return domain.Item{}, false
	}

	var published *time.Time
	if datetime, ok := sel.Find("time").First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, datetime); err == nil {
			utc := parsed.UTC()
			published = &utc
		}
	}

	excerpt := strings.TrimSpace(sel.Find("p").First().Text())

	return domain.Item{
		SourceID:         req.SourceID,
		SourceCategory:   req.Category,
		Title:            title,
		URL:              href,
		PublishedAt:      published,
		RawBody:          excerpt,
		OriginalLanguage: "en",
	}, true
}
