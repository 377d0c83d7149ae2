package usecase

import (
	"context"
	"fmt"
	"strings"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/model"
	"logstream-srv/pkg/discord"
)

func (uc *implUseCase) sendDiscord(ctx context.Context, input alert.NotifyInput) error {
	client, err := uc.discordFor(input.Rule.Targets.DiscordWebhookURL)
	if err != nil {
		return err
	}

	a := input.Alert
	fields := []discord.EmbedField{
		buildField("Severity", strings.ToUpper(string(a.Severity)), true),
		buildField("Rule", input.Rule.Name, true),
		buildField("Type", string(input.Rule.Type), true),
		buildField("Project", a.ProjectID, true),
	}
	if a.ConnectionID != "" {
		fields = append(fields, buildField("Connection", a.ConnectionID, true))
	}
	if src, ok := a.Metadata["source"].(string); ok && src != "" {
		fields = append(fields, buildField("Source", src, true))
	}

	return client.SendEmbed(ctx, discord.MessageOptions{
		Type:        messageTypeFor(a.Severity),
		Color:       mapSeverityToColor(a.Severity),
		Title:       fmt.Sprintf("Alert: %s", input.Rule.Name),
		Description: a.Message,
		Fields:      fields,
		Timestamp:   a.CreatedAt,
		Footer:      &discord.EmbedFooter{Text: "Logstream • Alert " + a.ID},
	})
}

// discordFor returns the client for a rule's own webhook, falling back to
// the default one. Clients are cached per URL.
func (uc *implUseCase) discordFor(url string) (discord.IDiscord, error) {
	if url == "" {
		if uc.deps.Discord == nil {
			return nil, alert.ErrChannelDisabled
		}
		return uc.deps.Discord, nil
	}

	uc.discordMu.Lock()
	defer uc.discordMu.Unlock()
	if c, ok := uc.discords[url]; ok {
		return c, nil
	}
	c, err := uc.newDiscord(url)
	if err != nil {
		return nil, err
	}
	uc.discords[url] = c
	return c, nil
}

func messageTypeFor(s model.Severity) discord.MessageType {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return discord.MessageTypeError
	case model.SeverityMedium:
		return discord.MessageTypeWarning
	default:
		return discord.MessageTypeInfo
	}
}

func mapSeverityToColor(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return discord.ColorRed
	case model.SeverityHigh:
		return discord.ColorOrange
	case model.SeverityMedium:
		return discord.ColorYellow
	case model.SeverityLow:
		return discord.ColorBlue
	default:
		return discord.ColorGray
	}
}

func buildField(name, value string, inline bool) discord.EmbedField {
	if value == "" {
		value = "N/A"
	}
	return discord.EmbedField{
		Name:   name,
		Value:  value,
		Inline: inline,
	}
}
