package discord

import (
	"net/http"
	"time"

	"realtime-sync/pkg/log"
)

// Config tunes the webhook client.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
	Username   string
}

type discordImpl struct {
	l      log.Logger
	url    string
	config Config
	client *http.Client
}

// Level picks the embed color.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type WebhookPayload struct {
	Content  string  `json:"content,omitempty"`
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

// Alert is one operator-facing report.
type Alert struct {
	Level       Level
	Title       string
	Description string
	Fields      []EmbedField
	Timestamp   time.Time
}
