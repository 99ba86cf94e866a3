// Package rest implements the JSON-API fetcher strategies (CivitAI
// models, HuggingFace models, Sakugabooru posts).
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/fetch"
)

const (
	civitaiModelURL = "https://civitai.com/models"
	civitaiPageSize = 10
	bodyTruncateLen = 500
)

// CivitaiFetcher queries the CivitAI REST API for recent LoRA models,
// one page per configured tag.
type CivitaiFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

var _ fetch.Fetcher = (*CivitaiFetcher)(nil)

// NewCivitaiFetcher wires an HTTP client with a polite request rate.
func NewCivitaiFetcher(client *http.Client) *CivitaiFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &CivitaiFetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
}

// Name identifies the strategy inside the registry.
func (c *CivitaiFetcher) Name() string {
	return "civitai"
}

type civitaiModel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PublishedAt string `json:"publishedAt"`
	CreatedAt   string `json:"createdAt"`
	Stats       struct {
		DownloadCount int     `json:"downloadCount"`
		Rating        float64 `json:"rating"`
		FavoriteCount int     `json:"favoriteCount"`
	} `json:"stats"`
	Creator struct {
		Username string `json:"username"`
	} `json:"creator"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

// Fetch walks the configured tags and collects newest LoRA models.
// A failing tag only skips that tag; tags are independent queries.
func (c *CivitaiFetcher) Fetch(ctx context.Context, req fetch.Request) ([]domain.Item, error) {
	tags := strings.Split(req.Options["tags"], ",")
	if len(tags) == 1 && tags[0] == "" {
		tags = []string{"anime"}
	}

	var items []domain.Item
	var lastErr error
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		models, err := c.fetchTag(ctx, req.URL, tag)
		if err != nil {
			lastErr = fmt.Errorf("tag %s: %w", tag, err)
			continue
		}
		for _, model := range models {
			items = append(items, c.mapModel(model, req))
		}
	}

	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return items, nil
}

func (c *CivitaiFetcher) fetchTag(ctx context.Context, base, tag string) ([]civitaiModel, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %s: %w", base, err)
	}
	q := u.Query()
	q.Set("sort", "Newest")
	q.Set("types", "LORA")
	q.Set("tag", tag)
	q.Set("limit", fmt.Sprint(civitaiPageSize))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "anime-ai-digest/1.0")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("civitai returned %s", resp.Status)
	}

	var payload struct {
		Items []civitaiModel `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload.Items, nil
}

func (c *CivitaiFetcher) mapModel(model civitaiModel, req fetch.Request) domain.Item {
	published := parseTimestamp(model.PublishedAt)
	if published == nil {
		published = parseTimestamp(model.CreatedAt)
	}

	tagNames := make([]string, 0, len(model.Tags))
	for _, t := range model.Tags {
		tagNames = append(tagNames, t.Name)
	}

	return domain.Item{
		SourceID:         req.SourceID,
		SourceCategory:   req.Category,
		Title:            model.Name,
		URL:              fmt.Sprintf("%s/%d", civitaiModelURL, model.ID),
		PublishedAt:      published,
		RawBody:          truncate(model.Description, bodyTruncateLen),
		OriginalLanguage: "en",
		Metadata: domain.Metadata{
			domain.MetaDownloads: float64(model.Stats.DownloadCount),
			domain.MetaRating:    model.Stats.Rating,
			domain.MetaFavorites: float64(model.Stats.FavoriteCount),
			"creator":            model.Creator.Username,
			"tags":               tagNames,
		},
	}
}

func parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000"} {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// truncate cuts s to at most max characters on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
