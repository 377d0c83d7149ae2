package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/notification"
	"logstream-srv/pkg/retry"
)

func (uc *implUseCase) sendWebhook(ctx context.Context, input alert.NotifyInput) error {
	url := input.Rule.Targets.WebhookURL
	if url == "" {
		return notification.ErrNoWebhookURL
	}

	a := input.Alert
	body, err := json.Marshal(notification.WebhookPayload{
		AlertID:   a.ID,
		RuleID:    input.Rule.ID,
		RuleName:  input.Rule.Name,
		ProjectID: a.ProjectID,
		Severity:  string(a.Severity),
		Message:   a.Message,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	policy := retry.Policy{
		Attempts: uc.cfg.WebhookRetries,
		Backoff:  retry.Exponential{Base: uc.cfg.WebhookBackoff, Max: 8 * uc.cfg.WebhookBackoff, Jitter: 0.2}.Backoff(),
	}
	return policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			uc.l.Infof(ctx, "internal.notification.usecase.sendWebhook: retrying alert=%s attempt=%d", a.ID, attempt+1)
		}
		return uc.postWebhook(ctx, url, body)
	})
}

// postWebhook sends one attempt. 4xx replies other than 408 and 429 are
// permanent.
func (uc *implUseCase) postWebhook(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "logstream-srv/1.0")

	resp, err := uc.deps.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 300 {
		return nil
	}
	err = fmt.Errorf("%w: %d", notification.ErrWebhookReply, resp.StatusCode)
	if resp.StatusCode < 500 && resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
