// Package email delivers rendered digests through the Resend API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shu-bamma/anime-ai-digest/internal/config"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
)

const resendEndpoint = "https://api.resend.com/emails"

// Mailer sends HTML email via Resend.
type Mailer struct {
	apiKey     string
	fromEmail  string
	recipients []string
	endpoint   string
	client     *http.Client
}

var _ ports.Mailer = (*Mailer)(nil)

// NewMailer registers API key, sender, and recipient list.
func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		recipients: cfg.Recipients,
		endpoint:   resendEndpoint,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Send posts one email with the given subject and HTML body to every
// configured recipient.
func (m *Mailer) Send(ctx context.Context, subject, html string) error {
	if m.apiKey == "" || m.fromEmail == "" || len(m.recipients) == 0 {
		return fmt.Errorf("resend mailer misconfigured")
	}

	payload, err := json.Marshal(map[string]any{
		"from":    m.fromEmail,
		"to":      m.recipients,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	return nil
}
