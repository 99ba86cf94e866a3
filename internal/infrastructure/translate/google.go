// Package translate attaches English translations to CJK items using
// the Google Translate endpoint, with storage-backed caching so
// repeated titles never hit the network twice.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
)

// Body snippets longer than this are cut before translation.
const bodySnippetLen = 500

// Cache stores translation results keyed by text hash and language pair.
type Cache interface {
	CachedTranslation(ctx context.Context, textHash, sourceLang, targetLang string) (string, bool, error)
	CacheTranslation(ctx context.Context, textHash, original, sourceLang, targetLang, translated string) error
}

// GoogleTranslator implements ports.Translator over the public
// translate endpoint.
type GoogleTranslator struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	cache    Cache
}

var _ ports.Translator = (*GoogleTranslator)(nil)

// NewGoogleTranslator wires the endpoint, an optional cache, and a
// request rate limit.
func NewGoogleTranslator(endpoint string, client *http.Client, cache Cache, requestsPerSecond float64) *GoogleTranslator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &GoogleTranslator{
		endpoint: endpoint,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		cache:    cache,
	}
}

// TranslateItem fills TitleTranslated and BodyTranslated for
// non-English items. English items and non-CJK text pass through.
func (g *GoogleTranslator) TranslateItem(ctx context.Context, item *domain.Item) error {
	if item == nil || item.OriginalLanguage == "en" || item.OriginalLanguage == "" {
		return nil
	}

	if item.Title != "" && IsCJK(item.Title) {
		translated, err := g.translate(ctx, item.Title, item.OriginalLanguage)
		if err != nil {
			return fmt.Errorf("translate title: %w", err)
		}
		item.TitleTranslated = translated
	}

	if item.RawBody != "" && IsCJK(item.RawBody) {
		// Cut on a rune boundary; CJK text is multi-byte throughout.
		snippet := item.RawBody
		if runes := []rune(snippet); len(runes) > bodySnippetLen {
			snippet = string(runes[:bodySnippetLen])
		}
		translated, err := g.translate(ctx, snippet, item.OriginalLanguage)
		if err != nil {
			return fmt.Errorf("translate body: %w", err)
		}
		item.BodyTranslated = translated
	}

	return nil
}

func (g *GoogleTranslator) translate(ctx context.Context, text, sourceLang string) (string, error) {
	hash := textHash(text, sourceLang, "en")
	if g.cache != nil {
		if cached, ok, err := g.cache.CachedTranslation(ctx, hash, sourceLang, "en"); err == nil && ok {
			return cached, nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", "en")
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "anime-ai-digest/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned %s", resp.Status)
	}

	translated, err := decodeResponse(resp.Body)
	if err != nil {
		return "", err
	}

	if g.cache != nil {
		// Cache writes are best effort; a miss just means a retry later.
		_ = g.cache.CacheTranslation(ctx, hash, text, sourceLang, "en", translated)
	}
	return translated, nil
}

// decodeResponse unpacks the gtx response shape: a nested array whose
// first element holds [translated, original, ...] segment pairs.
func decodeResponse(body io.Reader) (string, error) {
	var payload []any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty translate response")
	}

	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected translate response shape")
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no translated text in response")
	}
	return sb.String(), nil
}

func textHash(text, sourceLang, targetLang string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", text, sourceLang, targetLang)))
	return hex.EncodeToString(sum[:])
}
