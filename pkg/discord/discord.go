package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"realtime-sync/pkg/log"
)

var (
	ErrWebhookRequired = errors.New("discord: webhook url is required")
	ErrInvalidWebhook  = errors.New("discord: webhook url must end in /api/webhooks/{id}/{token}")
	ErrEmbedTooLong    = errors.New("discord: embed too long")
)

//go:generate mockery --name IDiscord
type IDiscord interface {
	Report(ctx context.Context, alert Alert) error
	Close() error
}

// New validates the webhook url and returns a client. Zero Config fields get defaults.
func New(l log.Logger, cfg Config) (IDiscord, error) {
	if cfg.WebhookURL == "" {
		return nil, ErrWebhookRequired
	}
	if err := validateWebhookURL(cfg.WebhookURL); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = DefaultRetryCount
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	return &discordImpl{
		l:      l,
		url:    cfg.WebhookURL,
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}, nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidWebhook
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	n := len(parts)
	if n < 4 || parts[n-4] != "api" || parts[n-3] != "webhooks" || parts[n-2] == "" || parts[n-1] == "" {
		return ErrInvalidWebhook
	}
	return nil
}

func (d *discordImpl) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func (d *discordImpl) Report(ctx context.Context, alert Alert) error {
	embed := Embed{
		Title:       truncate(alert.Title, MaxTitleLen),
		Description: truncate(alert.Description, MaxDescriptionLen),
		Color:       colorFor(alert.Level),
	}
	for _, f := range alert.Fields {
		f.Value = truncate(f.Value, MaxFieldValueLen)
		embed.Fields = append(embed.Fields, f)
	}
	if !alert.Timestamp.IsZero() {
		embed.Timestamp = alert.Timestamp.UTC().Format(time.RFC3339)
	}
	if embedLength(embed) > MaxEmbedLength {
		return ErrEmbedTooLong
	}
	return d.sendWithRetry(ctx, &WebhookPayload{Username: d.config.Username, Embeds: []Embed{embed}})
}

func (d *discordImpl) sendWithRetry(ctx context.Context, payload *WebhookPayload) error {
	var lastErr error
	for attempt := 0; attempt <= d.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.config.RetryDelay):
			}
		}
		err := d.sendRequest(ctx, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		d.l.Warnf(ctx, "pkg.discord.sendWithRetry: attempt %d failed: %v", attempt+1, err)
	}
	return fmt.Errorf("discord: failed after %d attempts: %w", d.config.RetryCount+1, lastErr)
}

func (d *discordImpl) sendRequest(ctx context.Context, payload *WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

func colorFor(l Level) int {
	switch l {
	case LevelWarning:
		return ColorYellow
	case LevelError:
		return ColorRed
	default:
		return ColorBlue
	}
}

func embedLength(e Embed) int {
	total := len(e.Title) + len(e.Description)
	for _, f := range e.Fields {
		total += len(f.Name) + len(f.Value)
	}
	return total
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
