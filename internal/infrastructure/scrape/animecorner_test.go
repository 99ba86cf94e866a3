package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/fetch"
)

const listingFixture = `
<main>
  <article>
    <h3><a href="https://animecorner.me/studio-adopts-ai-inbetweening/">Studio Adopts AI In-betweening</a></h3>
    <time datetime="2026-03-02T09:30:00+09:00">March 2, 2026</time>
    <p>A mid-size studio describes its hybrid pipeline.</p>
  </article>
  <article>
    <h3><a href="https://animecorner.me/spring-lineup/">Spring Lineup Announced</a></h3>
    <p>No date on this one.</p>
  </article>
  <article>
    <h3><a href="">   </a></h3>
  </article>
</main>`

func TestParseArticle(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingFixture))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	req := fetch.Request{SourceID: "anime_corner", Category: domain.CategoryIndustry}
	first := doc.Find("article").First()

	item, ok := parseArticle(first, req)
	if !ok {
		t.Fatalf("expected article to parse")
	}
	if item.Title != "Studio Adopts AI In-betweening" {
		t.Fatalf("unexpected title: %s", item.Title)
	}
	if item.PublishedAt == nil {
		t.Fatalf("expected datetime to parse")
	}
	if got := item.PublishedAt.UTC(); !got.Equal(time.Date(2026, time.March, 2, 0, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published time: %v", got)
	}
	if item.RawBody != "A mid-size studio describes its hybrid pipeline." {
		t.Fatalf("unexpected excerpt: %s", item.RawBody)
	}
}

func TestAnimeCornerFetcherScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingFixture))
	}))
	defer server.Close()

	f := NewAnimeCornerFetcher(server.Client())
	items, err := f.Fetch(context.Background(), fetch.Request{
		SourceID: "anime_corner",
		Category: domain.CategoryIndustry,
		URL:      server.URL + "/category/news/anime-news/",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// The entry without a title must be dropped.
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].PublishedAt != nil {
		t.Fatalf("missing datetime should stay nil")
	}
	if items[0].SourceCategory != domain.CategoryIndustry {
		t.Fatalf("category not carried through")
	}
}
