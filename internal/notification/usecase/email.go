package usecase

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/notification"
)

func (uc *implUseCase) sendEmail(ctx context.Context, input alert.NotifyInput) error {
	to := input.Rule.Targets.Emails
	if len(to) == 0 {
		return notification.ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := uc.cfg.SMTP
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	msg := buildEmail(cfg.From, to, input)
	if err := uc.sendMail(addr, auth, cfg.From, to, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildEmail(from string, to []string, input alert.NotifyInput) []byte {
	a := input.Alert
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(a.Severity)), input.Rule.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", a.CreatedAt.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "%s\r\n\r\n", a.Message)
	fmt.Fprintf(&b, "Project: %s\r\n", a.ProjectID)
	fmt.Fprintf(&b, "Rule: %s (%s)\r\n", input.Rule.Name, input.Rule.ID)
	fmt.Fprintf(&b, "Alert: %s\r\n", a.ID)
	fmt.Fprintf(&b, "Time: %s\r\n", a.CreatedAt.UTC().Format(time.RFC3339))
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
