package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/fetch"
)

func TestCivitaiFetcher(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("types"); got != "LORA" {
			t.Errorf("expected types=LORA, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [{
			"id": 4242,
			"name": "Wan2 Character Consistency LoRA",
			"description": "Keeps anime characters stable across shots.",
			"publishedAt": "2026-03-01T12:00:00Z",
			"stats": {"downloadCount": 5400, "rating": 4.8, "favoriteCount": 320},
			"creator": {"username": "sakuga_fan"},
			"tags": [{"name": "anime"}, {"name": "wan"}]
		}]}`))
	}))
	defer server.Close()

	f := NewCivitaiFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "civitai_lora",
		Category: domain.CategoryCommunity,
		URL:      server.URL,
		Options:  map[string]string{"tags": "anime"},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.URL != "https://civitai.com/models/4242" {
		t.Fatalf("unexpected url: %s", item.URL)
	}
	if v, ok := item.Metadata.Number(domain.MetaDownloads); !ok || v != 5400 {
		t.Fatalf("downloads metadata missing: %+v", item.Metadata)
	}
	if v, ok := item.Metadata.Number(domain.MetaRating); !ok || v != 4.8 {
		t.Fatalf("rating metadata missing: %+v", item.Metadata)
	}
	if item.PublishedAt == nil {
		t.Fatalf("published timestamp missing")
	}
}

func TestCivitaiFetcherSkipsFailingTag(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("tag") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"id": 1, "name": "ok"}]}`))
	}))
	defer server.Close()

	f := NewCivitaiFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "civitai_lora",
		URL:      server.URL,
		Options:  map[string]string{"tags": "broken,anime"},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 tag queries, got %d", calls)
	}
	if len(items) != 1 {
		t.Fatalf("expected item from healthy tag, got %d", len(items))
	}
}

func TestHuggingFaceFetcher(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sort"); got != "lastModified" {
			t.Errorf("expected sort=lastModified, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("search") {
		case "anime":
			_, _ = w.Write([]byte(`[{
				"id": "studio/anime-wan-lora",
				"likes": 214,
				"downloads": 18200,
				"pipeline_tag": "text-to-video",
				"tags": ["anime", "lora", "wan"],
				"lastModified": "2026-03-02T08:30:00.000Z"
			}]`))
		default:
			_, _ = w.Write([]byte(`[{
				"id": "studio/anime-wan-lora",
				"likes": 214,
				"downloads": 18200,
				"lastModified": "2026-03-02T08:30:00.000Z"
			}]`))
		}
	}))
	defer server.Close()

	f := NewHuggingFaceFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "huggingface_models",
		Category: domain.CategoryModels,
		URL:      server.URL,
		Options:  map[string]string{"search": "anime,wan"},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("model matching both search terms should be kept once, got %d items", len(items))
	}
	item := items[0]
	if item.URL != "https://huggingface.co/studio/anime-wan-lora" {
		t.Fatalf("unexpected url: %s", item.URL)
	}
	if v, ok := item.Metadata.Number(domain.MetaStars); !ok || v != 214 {
		t.Fatalf("stars metadata missing: %+v", item.Metadata)
	}
	if v, ok := item.Metadata.Number(domain.MetaDownloads); !ok || v != 18200 {
		t.Fatalf("downloads metadata missing: %+v", item.Metadata)
	}
	if item.PublishedAt == nil {
		t.Fatalf("published timestamp missing")
	}
	if item.RawBody != "text-to-video: anime, lora, wan" {
		t.Fatalf("unexpected body: %q", item.RawBody)
	}
}

func TestHuggingFaceFetcherSkipsFailingTerm(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"id": "x/ok", "likes": 3}]`))
	}))
	defer server.Close()

	f := NewHuggingFaceFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "huggingface_models",
		URL:      server.URL,
		Options:  map[string]string{"search": "broken,anime"},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected item from healthy term, got %d", len(items))
	}
}

func TestTruncateCutsOnRuneBoundary(t *testing.T) {
	t.Parallel()

	ascii := strings.Repeat("x", 40)
	if got := truncate(ascii, 500); got != ascii {
		t.Fatalf("short string should pass through unchanged")
	}
	if got := truncate(ascii, 10); got != ascii[:10] {
		t.Fatalf("ascii truncation = %q", got)
	}

	// Multi-byte description, as CivitAI models tagged from Japanese
	// communities carry. A byte-indexed cut would split a rune.
	cjk := strings.Repeat("動", 300)
	got := truncate(cjk, 250)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8: %q", got[len(got)-6:])
	}
	if n := utf8.RuneCountInString(got); n != 250 {
		t.Fatalf("truncated to %d runes, want 250", n)
	}
}

func TestSakugabooruFetcher(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 9001, "tags": "ghibli effects smears", "score": 42, "fav_count": 17, "created_at": 1767225600},
			{"id": 9002, "tags": "", "score": 3, "fav_count": 0, "created_at": 0}
		]`))
	}))
	defer server.Close()

	f := NewSakugabooruFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "sakugabooru",
		Category: domain.CategoryCommunity,
		URL:      server.URL + "/post.json",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].URL != "https://www.sakugabooru.com/post/show/9001" {
		t.Fatalf("unexpected url: %s", items[0].URL)
	}
	if v, ok := items[0].Metadata.Number(domain.MetaScore); !ok || v != 42 {
		t.Fatalf("booru score metadata missing: %+v", items[0].Metadata)
	}
	if items[0].PublishedAt == nil {
		t.Fatalf("expected published timestamp from unix epoch")
	}
	if items[1].PublishedAt != nil {
		t.Fatalf("zero epoch should map to missing timestamp")
	}
}
