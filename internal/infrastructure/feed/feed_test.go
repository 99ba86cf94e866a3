package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/fetch"
)

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Release notes from ComfyUI</title>
  <entry>
    <id>tag:github.com,2008:Repository/123/v0.4.0</id>
    <updated>2026-03-02T10:00:00Z</updated>
    <title>v0.4.0</title>
    <link rel="alternate" href="https://github.com/comfyanonymous/ComfyUI/releases/tag/v0.4.0"/>
    <content type="html">Adds a wan video sampler node.</content>
  </entry>
  <entry>
    <id>tag:github.com,2008:Repository/123/v0.3.9</id>
    <updated>2026-02-27T08:00:00Z</updated>
    <title>v0.3.9</title>
    <link rel="alternate" href="https://github.com/comfyanonymous/ComfyUI/releases/tag/v0.3.9"/>
    <content type="html">Bug fixes.</content>
  </entry>
</feed>`

func TestFeedFetcher(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	f := NewFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "github_comfyui",
		Category: domain.CategoryModels,
		URL:      server.URL + "/releases.atom",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "v0.4.0" {
		t.Fatalf("unexpected title: %s", items[0].Title)
	}
	if items[0].URL != "https://github.com/comfyanonymous/ComfyUI/releases/tag/v0.4.0" {
		t.Fatalf("unexpected url: %s", items[0].URL)
	}
	if items[0].PublishedAt == nil {
		t.Fatalf("published timestamp missing")
	}
	if items[0].SourceCategory != domain.CategoryModels {
		t.Fatalf("category not carried through: %s", items[0].SourceCategory)
	}
}

func TestFeedFetcherLimitOption(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	f := NewFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "github_comfyui",
		URL:      server.URL,
		Options:  map[string]string{"limit": "1"},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("limit option ignored: got %d items", len(items))
	}
}

func TestFeedFetcherUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(server.Client())
	if _, err := f.Fetch(context.Background(), fetch.Request{SourceID: "x", URL: server.URL}); err == nil {
		t.Fatalf("expected error on 502")
	}
}
