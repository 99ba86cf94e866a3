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

const sakugaPageSize = 50

// SakugabooruFetcher pulls recent posts from the Sakugabooru JSON API.
// Booru score and favourite counts feed the engagement scorer.
type SakugabooruFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

var _ fetch.Fetcher = (*SakugabooruFetcher)(nil)

// NewSakugabooruFetcher wires an HTTP client with a polite request rate.
func NewSakugabooruFetcher(client *http.Client) *SakugabooruFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &SakugabooruFetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Name identifies the strategy inside the registry.
func (s *SakugabooruFetcher) Name() string {
	return "sakugabooru"
}

type sakugaPost struct {
	ID        int    `json:"id"`
	Tags      string `json:"tags"`
	Source    string `json:"source"`
	Score     int    `json:"score"`
	FavCount  int    `json:"fav_count"`
	CreatedAt int64  `json:"created_at"`
}

// Fetch lists recent posts. Options: "tags" narrows the listing.
func (s *SakugabooruFetcher) Fetch(ctx context.Context, req fetch.Request) ([]domain.Item, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %s: %w", req.URL, err)
	}
	q := u.Query()
	q.Set("limit", fmt.Sprint(sakugaPageSize))
	if tags := req.Options["tags"]; tags != "" {
		q.Set("tags", tags)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "anime-ai-digest/1.0")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sakugabooru returned %s", resp.Status)
	}

	var posts []sakugaPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]domain.Item, 0, len(posts))
	for _, post := range posts {
		items = append(items, s.mapPost(post, req))
	}
	return items, nil
}

func (s *SakugabooruFetcher) mapPost(post sakugaPost, req fetch.Request) domain.Item {
	var published *time.Time
	if post.CreatedAt > 0 {
		t := time.Unix(post.CreatedAt, 0).UTC()
		published = &t
	}

	title := fmt.Sprintf("Sakuga post #%d", post.ID)
	if tags := strings.TrimSpace(post.Tags); tags != "" {
		title = fmt.Sprintf("%s: %s", title, tags)
	}

	return domain.Item{
		SourceID:         req.SourceID,
		SourceCategory:   req.Category,
		Title:            title,
		URL:              fmt.Sprintf("https://www.sakugabooru.com/post/show/%d", post.ID),
		PublishedAt:      published,
		RawBody:          post.Source,
		OriginalLanguage: "en",
		Metadata: domain.Metadata{
			domain.MetaScore:     float64(post.Score),
			domain.MetaFavorites: float64(post.FavCount),
		},
	}
}
