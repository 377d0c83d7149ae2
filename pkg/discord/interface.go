package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"logstream-srv/pkg/log"
)

var errWebhookRequired = errors.New("discord: webhook URL is required")

type IDiscord interface {
	SendEmbed(ctx context.Context, options MessageOptions) error
	SendError(ctx context.Context, title, description string, err error) error
	ReportBug(ctx context.Context, message string) error
	Close() error
}

func parseWebhookURL(webhookURL string) (id, token string, err error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if !strings.HasPrefix(webhookURL, webhookURLPrefix) {
		return "", "", fmt.Errorf("discord: invalid webhook URL format")
	}
	parts := strings.SplitN(strings.TrimPrefix(webhookURL, webhookURLPrefix), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("discord: webhook URL must be .../webhooks/{id}/{token}")
	}
	return parts[0], parts[1], nil
}

// New builds a client for the webhook at webhookURL.
func New(l log.Logger, webhookURL string) (IDiscord, error) {
	if webhookURL == "" {
		return nil, errWebhookRequired
	}
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	d := newImpl(l, DefaultConfig())
	d.webhook = &webhookInfo{id: id, token: token}
	return d, nil
}

// NewWithURL posts to an arbitrary Discord-compatible URL. Alert rules carry
// their own webhook URLs, and tests point this at an httptest server.
func NewWithURL(l log.Logger, url string, cfg Config) IDiscord {
	d := newImpl(l, cfg)
	d.baseURL = url
	return d
}
