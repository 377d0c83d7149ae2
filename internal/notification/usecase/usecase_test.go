package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/model"
	"logstream-srv/internal/notification"
	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/discord"
	pkgLog "logstream-srv/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broadcast struct {
	topic string
	frame ws.Frame
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, topic string, frame ws.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, broadcast{topic: topic, frame: frame})
	return nil
}

func testInput() alert.NotifyInput {
	return alert.NotifyInput{
		Rule: model.AlertRule{
			ID:        "r1",
			ProjectID: "p1",
			UserID:    "owner",
			Name:      "db timeouts",
			Type:      model.AlertTypePatternMatch,
			Targets: model.AlertTargets{
				Emails: []string{"oncall@example.com"},
			},
		},
		Alert: model.Alert{
			ID:        "a1",
			UserID:    "u1",
			ProjectID: "p1",
			RuleID:    "r1",
			Severity:  model.SeverityHigh,
			Message:   `Pattern "db" matched: db timeout`,
			Metadata:  map[string]any{"source": "api"},
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestNotifyInApp(t *testing.T) {
	b := &fakeBroadcaster{}
	uc := newUseCase(pkgLog.NewNop(), Config{}, Dependencies{Broadcaster: b})

	require.NoError(t, uc.Notify(context.Background(), model.ChannelInApp, testInput()))

	topics := make([]string, len(b.sent))
	for i, s := range b.sent {
		topics[i] = s.topic
		assert.Equal(t, ws.MessageTypeAlert, s.frame.Type)
	}
	assert.ElementsMatch(t, []string{"project:p1", "user:u1", "user:owner"}, topics)

	data := b.sent[0].frame.Data.(ws.AlertData)
	assert.Equal(t, "a1", data.ID)
	assert.Equal(t, "db timeouts", data.RuleName)
	assert.Equal(t, "high", data.Severity)
}

func TestNotifyDisabledChannels(t *testing.T) {
	uc := newUseCase(pkgLog.NewNop(), Config{}, Dependencies{})
	ctx := context.Background()

	assert.False(t, uc.Enabled(model.ChannelInApp))
	assert.False(t, uc.Enabled(model.ChannelEmail))
	assert.True(t, uc.Enabled(model.ChannelWebhook))

	assert.ErrorIs(t, uc.Notify(ctx, model.ChannelInApp, testInput()), alert.ErrChannelDisabled)
	assert.ErrorIs(t, uc.Notify(ctx, model.ChannelEmail, testInput()), alert.ErrChannelDisabled)
	assert.ErrorIs(t, uc.Notify(ctx, model.Channel("sms"), testInput()), alert.ErrUnsupportedChannel)
	assert.ErrorIs(t, uc.Notify(ctx, model.ChannelDiscord, testInput()), alert.ErrChannelDisabled)
}

func TestNotifyEmail(t *testing.T) {
	uc := newUseCase(pkgLog.NewNop(), Config{SMTP: SMTPConfig{
		Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "alerts@example.com",
	}}, Dependencies{})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	uc.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	require.NoError(t, uc.Notify(context.Background(), model.ChannelEmail, testInput()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"oncall@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: [HIGH] db timeouts\r\n")
	assert.Contains(t, string(gotMsg), "db timeout")

	in := testInput()
	in.Rule.Targets.Emails = nil
	assert.ErrorIs(t, uc.Notify(context.Background(), model.ChannelEmail, in), notification.ErrNoRecipients)
}

func TestNotifyWebhookRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var p notification.WebhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "a1", p.AlertID)
		assert.Equal(t, "r1", p.RuleID)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	uc := newUseCase(pkgLog.NewNop(), Config{WebhookRetries: 3, WebhookBackoff: time.Millisecond}, Dependencies{})
	in := testInput()
	in.Rule.Targets.WebhookURL = srv.URL

	require.NoError(t, uc.Notify(context.Background(), model.ChannelWebhook, in))
	assert.EqualValues(t, 3, calls.Load())
}

func TestNotifyWebhookClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	uc := newUseCase(pkgLog.NewNop(), Config{WebhookRetries: 5, WebhookBackoff: time.Millisecond}, Dependencies{})
	in := testInput()
	in.Rule.Targets.WebhookURL = srv.URL

	err := uc.Notify(context.Background(), model.ChannelWebhook, in)
	assert.ErrorIs(t, err, notification.ErrWebhookReply)
	assert.EqualValues(t, 1, calls.Load())

	in.Rule.Targets.WebhookURL = ""
	assert.ErrorIs(t, uc.Notify(context.Background(), model.ChannelWebhook, in), notification.ErrNoWebhookURL)
}

func TestNotifyDiscordUsesRuleWebhook(t *testing.T) {
	var got discord.WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	uc := newUseCase(pkgLog.NewNop(), Config{}, Dependencies{})
	var built int
	uc.newDiscord = func(url string) (discord.IDiscord, error) {
		built++
		if url != "https://discord.com/api/webhooks/1/t" {
			return nil, errors.New("unexpected url")
		}
		return discord.NewWithURL(nil, srv.URL, discord.Config{RetryDelay: time.Millisecond}), nil
	}

	in := testInput()
	in.Rule.Targets.DiscordWebhookURL = "https://discord.com/api/webhooks/1/t"
	require.NoError(t, uc.Notify(context.Background(), model.ChannelDiscord, in))
	require.NoError(t, uc.Notify(context.Background(), model.ChannelDiscord, in))

	assert.Equal(t, 1, built)
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "Alert: db timeouts", got.Embeds[0].Title)
	assert.Equal(t, discord.ColorOrange, got.Embeds[0].Color)
}

func TestSeverityMapping(t *testing.T) {
	assert.Equal(t, discord.MessageTypeError, messageTypeFor(model.SeverityCritical))
	assert.Equal(t, discord.MessageTypeWarning, messageTypeFor(model.SeverityMedium))
	assert.Equal(t, discord.MessageTypeInfo, messageTypeFor(model.SeverityLow))
	assert.Equal(t, discord.ColorGray, mapSeverityToColor(model.Severity("other")))
	assert.Equal(t, "N/A", buildField("x", "", false).Value)
}
