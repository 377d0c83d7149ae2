package usecase

import (
	"context"
	"net/http"
	"net/smtp"
	"sync"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/model"
	"logstream-srv/internal/notification"
	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/discord"
	pkgLog "logstream-srv/pkg/log"
)

const (
	defaultWebhookRetries = 3
	defaultWebhookTimeout = 10 * time.Second
	defaultWebhookBackoff = 500 * time.Millisecond
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Config struct {
	SMTP           SMTPConfig
	WebhookRetries int
	WebhookTimeout time.Duration
	WebhookBackoff time.Duration
}

// Dependencies are the delivery backends. Channels whose backend is missing
// are disabled.
type Dependencies struct {
	Broadcaster ws.Broadcaster
	// Discord is the default webhook used when a rule has none of its own.
	Discord    discord.IDiscord
	HTTPClient *http.Client
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// sender delivers one alert on one channel.
type sender interface {
	send(ctx context.Context, input alert.NotifyInput) error
}

type senderFunc func(ctx context.Context, input alert.NotifyInput) error

func (f senderFunc) send(ctx context.Context, input alert.NotifyInput) error { return f(ctx, input) }

type implUseCase struct {
	l    pkgLog.Logger
	cfg  Config
	deps Dependencies

	sendMail   sendMailFunc
	newDiscord func(url string) (discord.IDiscord, error)

	discordMu sync.Mutex
	discords  map[string]discord.IDiscord

	senders map[model.Channel]sender
}

var _ notification.UseCase = &implUseCase{}

func New(l pkgLog.Logger, cfg Config, deps Dependencies) notification.UseCase {
	return newUseCase(l, cfg, deps)
}

func newUseCase(l pkgLog.Logger, cfg Config, deps Dependencies) *implUseCase {
	if cfg.WebhookRetries <= 0 {
		cfg.WebhookRetries = defaultWebhookRetries
	}
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = defaultWebhookTimeout
	}
	if cfg.WebhookBackoff <= 0 {
		cfg.WebhookBackoff = defaultWebhookBackoff
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: cfg.WebhookTimeout}
	}

	uc := &implUseCase{
		l:        l,
		cfg:      cfg,
		deps:     deps,
		sendMail: smtp.SendMail,
		newDiscord: func(url string) (discord.IDiscord, error) {
			return discord.New(l, url)
		},
		discords: make(map[string]discord.IDiscord),
	}
	uc.senders = uc.buildSenders()
	return uc
}

func (uc *implUseCase) buildSenders() map[model.Channel]sender {
	s := map[model.Channel]sender{
		model.ChannelWebhook: senderFunc(uc.sendWebhook),
		model.ChannelDiscord: senderFunc(uc.sendDiscord),
	}
	if uc.deps.Broadcaster != nil {
		s[model.ChannelInApp] = senderFunc(uc.sendInApp)
	}
	if uc.cfg.SMTP.Host != "" {
		s[model.ChannelEmail] = senderFunc(uc.sendEmail)
	}
	return s
}

func (uc *implUseCase) Enabled(channel model.Channel) bool {
	_, ok := uc.senders[channel]
	return ok
}

func (uc *implUseCase) Notify(ctx context.Context, channel model.Channel, input alert.NotifyInput) error {
	s, ok := uc.senders[channel]
	if !ok {
		switch channel {
		case model.ChannelInApp, model.ChannelEmail, model.ChannelWebhook, model.ChannelDiscord:
			return alert.ErrChannelDisabled
		default:
			return alert.ErrUnsupportedChannel
		}
	}
	if err := s.send(ctx, input); err != nil {
		uc.l.Warnf(ctx, "internal.notification.usecase.Notify.%s: alert=%s: %v", channel, input.Alert.ID, err)
		return err
	}
	return nil
}
