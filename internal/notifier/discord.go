// Package notifier posts moderation events to a Discord channel webhook
package notifier

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/hostguard/internal/model"
)

// Embed colors
const (
	colorBan      = 0xED4245
	colorUnban    = 0x57F287
	colorKick     = 0xFEE75C
	colorSoftlock = 0xEB459E
)

const footerText = "hostguard"

// WebhookSender executes a Discord webhook
type WebhookSender interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord forwards selected events to a webhook. Sends happen in the
// background so Notify never blocks the caller.
type Discord struct {
	sender    WebhookSender
	webhookID string
	token     string
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewDiscord creates a notifier for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}
func NewDiscord(webhookURL string, logger *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return NewDiscordWithSender(session, webhookURL, logger)
}

// NewDiscordWithSender creates a notifier that executes the webhook through
// sender
func NewDiscordWithSender(sender WebhookSender, webhookURL string, logger *slog.Logger) (*Discord, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	return &Discord{
		sender:    sender,
		webhookID: id,
		token:     token,
		logger:    logger.With(slog.String("component", "notifier")),
	}, nil
}

// ParseWebhookURL extracts the webhook ID and token
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", errors.New("webhook url must end in /webhooks/{id}/{token}")
}

// Notify implements model.Observer
func (d *Discord) Notify(evt model.Event) {
	embed := Embed(evt)
	if embed == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		params := &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
		if _, err := d.sender.WebhookExecute(d.webhookID, d.token, false, params); err != nil {
			d.logger.Warn("failed to send discord notification",
				slog.String("event", string(evt.Type)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every in-flight notification has been sent
func (d *Discord) Wait() {
	d.wg.Wait()
}

// Embed renders evt, or returns nil for events that aren't announced
func Embed(evt model.Event) *discordgo.MessageEmbed {
	var embed *discordgo.MessageEmbed

	switch evt.Type {
	case model.EventBanAdded:
		reason := model.ReasonManual
		if p, ok := evt.Payload.(model.BanAddedPayload); ok && p.Reason != "" {
			reason = p.Reason
		}
		embed = &discordgo.MessageEmbed{
			Title:  "🔨 Participant Banned",
			Color:  colorBan,
			Fields: []*discordgo.MessageEmbedField{{Name: "Reason", Value: reason, Inline: true}},
		}
	case model.EventBanRemoved:
		embed = &discordgo.MessageEmbed{Title: "✅ Ban Lifted", Color: colorUnban}
	case model.EventKickConfirmed:
		embed = &discordgo.MessageEmbed{Title: "👢 Kick Confirmed", Color: colorKick}
	case model.EventSoftlockStarted:
		embed = &discordgo.MessageEmbed{
			Title:       "🧊 Softlock Started",
			Color:       colorSoftlock,
			Description: "Kick attempts exhausted during a match; the participant is being neutralized.",
		}
	default:
		return nil
	}

	embed.Fields = append([]*discordgo.MessageEmbedField{
		{Name: "👤 Participant", Value: participantValue(evt), Inline: true},
	}, embed.Fields...)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footerText}
	embed.Timestamp = evt.Timestamp.Format(time.RFC3339)
	return embed
}

func participantValue(evt model.Event) string {
	if evt.DisplayName == "" {
		return fmt.Sprintf("`%s`", evt.Identity)
	}
	return fmt.Sprintf("%s (`%s`)", evt.DisplayName, evt.Identity)
}
