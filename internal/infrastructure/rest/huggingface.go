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
	huggingfaceModelURL = "https://huggingface.co"
	huggingfacePageSize = 10
)

// HuggingFaceFetcher queries the Hub models API for recently updated
// models matching the configured search terms. Likes and downloads come
// back as engagement metadata.
type HuggingFaceFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

var _ fetch.Fetcher = (*HuggingFaceFetcher)(nil)

// NewHuggingFaceFetcher wires an HTTP client with a polite request rate.
func NewHuggingFaceFetcher(client *http.Client) *HuggingFaceFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HuggingFaceFetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
}

// Name identifies the strategy inside the registry.
func (h *HuggingFaceFetcher) Name() string {
	return "huggingface"
}

type huggingfaceModel struct {
	ID           string   `json:"id"`
	Likes        int      `json:"likes"`
	Downloads    int      `json:"downloads"`
	PipelineTag  string   `json:"pipeline_tag"`
	Tags         []string `json:"tags"`
	CreatedAt    string   `json:"createdAt"`
	LastModified string   `json:"lastModified"`
}

// Fetch runs one API query per configured search term. A failing term
// only skips that term; a model matching several terms is kept once.
func (h *HuggingFaceFetcher) Fetch(ctx context.Context, req fetch.Request) ([]domain.Item, error) {
	terms := strings.Split(req.Options["search"], ",")
	if len(terms) == 1 && terms[0] == "" {
		terms = []string{"anime"}
	}

	seen := map[string]bool{}
	var items []domain.Item
	var lastErr error
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		models, err := h.searchModels(ctx, req.URL, term)
		if err != nil {
			lastErr = fmt.Errorf("search %s: %w", term, err)
			continue
		}
		for _, model := range models {
			if model.ID == "" || seen[model.ID] {
				continue
			}
			seen[model.ID] = true
			items = append(items, h.mapModel(model, req))
		}
	}

	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return items, nil
}

func (h *HuggingFaceFetcher) searchModels(ctx context.Context, base, term string) ([]huggingfaceModel, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %s: %w", base, err)
	}
	q := u.Query()
	q.Set("search", term)
	q.Set("sort", "lastModified")
	q.Set("direction", "-1")
	q.Set("limit", fmt.Sprint(huggingfacePageSize))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "anime-ai-digest/1.0")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface returned %s", resp.Status)
	}

	var models []huggingfaceModel
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return models, nil
}

func (h *HuggingFaceFetcher) mapModel(model huggingfaceModel, req fetch.Request) domain.Item {
	published := parseTimestamp(model.LastModified)
	if published == nil {
		published = parseTimestamp(model.CreatedAt)
	}

	var body strings.Builder
	if model.PipelineTag != "" {
		body.WriteString(model.PipelineTag)
	}
	if len(model.Tags) > 0 {
		if body.Len() > 0 {
			body.WriteString(": ")
		}
		body.WriteString(strings.Join(model.Tags, ", "))
	}

	return domain.Item{
		SourceID:         req.SourceID,
		SourceCategory:   req.Category,
		Title:            model.ID,
		URL:              fmt.Sprintf("%s/%s", huggingfaceModelURL, model.ID),
		PublishedAt:      published,
		RawBody:          truncate(body.String(), bodyTruncateLen),
		OriginalLanguage: "en",
		Metadata: domain.Metadata{
			domain.MetaStars:     float64(model.Likes),
			domain.MetaDownloads: float64(model.Downloads),
			"pipeline_tag":       model.PipelineTag,
		},
	}
}
