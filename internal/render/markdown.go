// Package render turns a digest into Markdown and HTML documents.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
)

var categoryOrder = []domain.Category{
	domain.CategoryModels,
	domain.CategoryIndustry,
	domain.CategoryCommunity,
	domain.CategoryYouTube,
	domain.CategoryLegal,
}

var categoryHeadings = map[domain.Category]string{
	domain.CategoryModels:    "Models & Tools",
	domain.CategoryIndustry:  "Industry",
	domain.CategoryCommunity: "Community",
	domain.CategoryYouTube:   "Video",
	domain.CategoryLegal:     "Legal & Policy",
}

// Renderer formats digests with a configurable title.
type Renderer struct {
	title string
}

var _ ports.Renderer = (*Renderer)(nil)

// NewRenderer builds a renderer using the given digest title.
func NewRenderer(title string) *Renderer {
	if title == "" {
		title = "Anime AI Digest"
	}
	return &Renderer{title: title}
}

// Render produces the Markdown and HTML documents for a digest.
func (r *Renderer) Render(digest domain.Digest) (string, string, error) {
	groups := groupByCategory(digest.Items)

	markdown := r.renderMarkdown(digest, groups)
	htmlDoc := r.renderHTML(digest, groups)
	return markdown, htmlDoc, nil
}

func groupByCategory(items []domain.ScoredItem) map[domain.Category][]domain.ScoredItem {
	groups := make(map[domain.Category][]domain.ScoredItem)
	for _, si := range items {
		groups[si.Item.SourceCategory] = append(groups[si.Item.SourceCategory], si)
	}
	return groups
}

func (r *Renderer) renderMarkdown(digest domain.Digest, groups map[domain.Category][]domain.ScoredItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.title)
	fmt.Fprintf(&b, "_%s · last %d hours · %d items_\n\n",
		digest.GeneratedAt.Format("January 2, 2006"), digest.WindowHours, len(digest.Items))

	if digest.Editorial.Highlights != "" {
		b.WriteString(digest.Editorial.Highlights)
		b.WriteString("\n\n")
	}
	if len(digest.Editorial.Themes) > 0 {
		b.WriteString("**This period:**\n\n")
		for _, theme := range digest.Editorial.Themes {
			fmt.Fprintf(&b, "- %s\n", theme)
		}
		b.WriteString("\n")
	}

	for _, cat := range categoryOrder {
		items := groups[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", categoryHeadings[cat])
		for _, si := range items {
			fmt.Fprintf(&b, "### [%s](%s)\n\n", si.Item.DisplayTitle(), si.Item.URL)
			if summary := digest.Editorial.Summaries[si.Item.ID]; summary != "" {
				b.WriteString(summary)
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "_%s_\n\n", si.Item.SourceID)
		}
	}

	return b.String()
}

func (r *Renderer) renderHTML(digest domain.Digest, groups map[domain.Category][]domain.ScoredItem) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(r.title))
	b.WriteString("<style>body{font-family:sans-serif;max-width:720px;margin:0 auto;padding:16px;color:#222}h2{border-bottom:1px solid #ddd;padding-bottom:4px}a{color:#4657ce}.meta{color:#777;font-size:0.85em}</style>\n")
	b.WriteString("</head>\n<body>\n")

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(r.title))
	fmt.Fprintf(&b, "<p class=\"meta\">%s · last %d hours · %d items</p>\n",
		digest.GeneratedAt.Format("January 2, 2006"), digest.WindowHours, len(digest.Items))

	if digest.Editorial.Highlights != "" {
		for _, para := range strings.Split(digest.Editorial.Highlights, "\n\n") {
			if para = strings.TrimSpace(para); para != "" {
				fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(para))
			}
		}
	}
	if len(digest.Editorial.Themes) > 0 {
		b.WriteString("<ul>\n")
		for _, theme := range digest.Editorial.Themes {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(theme))
		}
		b.WriteString("</ul>\n")
	}

	for _, cat := range categoryOrder {
		items := groups[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(categoryHeadings[cat]))
		for _, si := range items {
			fmt.Fprintf(&b, "<h3><a href=\"%s\">%s</a></h3>\n",
				html.EscapeString(si.Item.URL), html.EscapeString(si.Item.DisplayTitle()))
			if summary := digest.Editorial.Summaries[si.Item.ID]; summary != "" {
				fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(summary))
			}
			fmt.Fprintf(&b, "<p class=\"meta\">%s</p>\n", html.EscapeString(si.Item.SourceID))
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}
