package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const (
	colorSignup = 0x00ff00
	colorLogin  = 0x0099ff

	maxUserAgentLen = 1024
	footerText      = "outr.club"
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []embedField `json:"fields"`
	Footer embedFooter  `json:"footer"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// WebhookSender posts events as Discord-style embeds.
type WebhookSender struct {
	url    string
	client *http.Client
	pacer  *rate.Limiter
}

// NewWebhookSender creates a sender for url. Consecutive posts are spaced at
// least minInterval apart; zero disables pacing.
func NewWebhookSender(url string, timeout, minInterval time.Duration) *WebhookSender {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		pacer:  rate.NewLimiter(limit, 1),
	}
}

// Send implements Sender.
func (s *WebhookSender) Send(ctx context.Context, e Event) error {
	if err := s.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for webhook slot: %w", err)
	}

	body, err := json.Marshal(buildPayload(e))
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildPayload(e Event) webhookPayload {
	title, color := "Login", colorLogin
	if e.Type == EventSignup {
		title, color = "New signup", colorSignup
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	ua := truncateUTF8(orDash(e.UserAgent), maxUserAgentLen)

	return webhookPayload{Embeds: []embed{{
		Title: "outr.club: " + title,
		Color: color,
		Fields: []embedField{
			{Name: "Type", Value: e.Type, Inline: true},
			{Name: "Username", Value: orDash(e.Username), Inline: true},
			{Name: "Email", Value: orDash(e.Email), Inline: true},
			{Name: "IP", Value: orDash(e.IP), Inline: true},
			{Name: "User-Agent", Value: ua},
			{Name: "Time", Value: ts.UTC().Format(time.RFC3339)},
		},
		Footer: embedFooter{Text: footerText},
	}}}
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
