// Package llm implements the digest summarizer over an OpenAI-compatible
// chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shu-bamma/anime-ai-digest/internal/config"
	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
)

const (
	summaryBatchSize = 10
	bodyPromptLen    = 300
	maxRetries       = 3
	baseRetryDelay   = 2 * time.Second
)

// Client talks to the chat completions endpoint for summaries, themes,
// and editorial highlights.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Summarizer = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

type promptItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Source string `json:"source_id"`
}

// Summarize produces per-item summaries in batches, then themes and an
// editorial opening over the summarized set. Individual batch failures
// are logged and skipped; the call fails only when nothing could be
// summarized at all.
func (c *Client) Summarize(ctx context.Context, items []domain.ScoredItem) (domain.Editorial, error) {
	editorial := domain.Editorial{Summaries: map[string]string{}}
	if len(items) == 0 {
		return editorial, nil
	}
	if c.apiKey == "" || c.baseURL == "" || c.model == "" {
		return editorial, fmt.Errorf("llm client misconfigured")
	}

	prompts := make([]promptItem, 0, len(items))
	for _, si := range items {
		// Rune-based cut keeps translated CJK bodies valid UTF-8.
		body := si.Item.DisplayBody()
		if runes := []rune(body); len(runes) > bodyPromptLen {
			body = string(runes[:bodyPromptLen])
		}
		prompts = append(prompts, promptItem{
			ID:     si.Item.ID,
			Title:  si.Item.DisplayTitle(),
			Body:   body,
			Source: si.Item.SourceID,
		})
	}

	var lastErr error
	for start := 0; start < len(prompts); start += summaryBatchSize {
		end := min(start+summaryBatchSize, len(prompts))
		summaries, err := c.summarizeBatch(ctx, prompts[start:end])
		if err != nil {
			lastErr = err
			c.warn("summary batch failed", "start", start, "error", err)
			continue
		}
		for id, s := range summaries {
			editorial.Summaries[id] = s
		}
	}
	if len(editorial.Summaries) == 0 && lastErr != nil {
		return editorial, fmt.Errorf("summarize items: %w", lastErr)
	}

	if themes, err := c.extractThemes(ctx, prompts, editorial.Summaries); err != nil {
		c.warn("theme extraction failed", "error", err)
	} else {
		editorial.Themes = themes
	}

	if highlights, err := c.generateHighlights(ctx, prompts, editorial); err != nil {
		c.warn("highlights generation failed", "error", err)
	} else {
		editorial.Highlights = highlights
	}

	return editorial, nil
}

func (c *Client) summarizeBatch(ctx context.Context, batch []promptItem) (map[string]string, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	prompt := fmt.Sprintf(`You are writing for a mid-week bulletin for anime and webtoon creators who use AI tools.

For each item below write "summary": two sentences, objective and informative. Sentence one states what this is, concretely. Sentence two states why it is notable. Max 60 words. Never say "this article discusses". Name tools explicitly (ComfyUI, Wan2, Clip Studio).

Items:
%s

Return JSON: {"summaries": [{"id": "...", "summary": "..."}]}`, payload)

	raw, err := c.chat(ctx, prompt, 2048, true)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Summaries []struct {
			ID      string `json:"id"`
			Summary string `json:"summary"`
		} `json:"summaries"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse summaries: %w", err)
	}

	out := make(map[string]string, len(parsed.Summaries))
	for _, s := range parsed.Summaries {
		if s.ID != "" && s.Summary != "" {
			out[s.ID] = s.Summary
		}
	}
	return out, nil
}

func (c *Client) extractThemes(ctx context.Context, items []promptItem, summaries map[string]string) ([]string, error) {
	type themed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	entries := make([]themed, 0, len(items))
	for _, it := range items {
		entries = append(entries, themed{Title: it.Title, Summary: summaries[it.ID]})
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	prompt := fmt.Sprintf(`Given these digest items, write 3-5 theme phrases that describe what happened this period as factual headlines, never instructions. Never use imperative voice.

Items:
%s

Return JSON: {"themes": ["...", "..."]}`, payload)

	raw, err := c.chat(ctx, prompt, 512, true)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Themes []string `json:"themes"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}
	return parsed.Themes, nil
}

func (c *Client) generateHighlights(ctx context.Context, items []promptItem, editorial domain.Editorial) (string, error) {
	top := items
	if len(top) > 10 {
		top = top[:10]
	}
	payload, err := json.Marshal(top)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}

	prompt := fmt.Sprintf(`Write the opening of an anime AI tools bulletin: three short paragraphs covering the biggest development, community activity, and broader context. Objective news voice. Never use imperative voice, never address the reader, no markdown headings.

Themes: %s

Top items:
%s`, strings.Join(editorial.Themes, ", "), payload)

	return c.chat(ctx, prompt, 1024, false)
}

// chat posts one user message and returns the completion content,
// retrying transient upstream failures with exponential backoff.
func (c *Client) chat(ctx context.Context, prompt string, maxTokens int, jsonResponse bool) (string, error) {
	body := map[string]any{
		"model":      c.model,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens": maxTokens,
	}
	if jsonResponse {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		content, retryable, err := c.doChat(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		c.warn("llm request failed, retrying", "attempt", attempt+1, "error", err)
	}
	return "", lastErr
}

func (c *Client) doChat(ctx context.Context, payload []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", retryable, fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("empty completion")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
