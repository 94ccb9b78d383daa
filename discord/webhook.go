// Package discord publishes treasury reports to Discord.
package discord

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/etnz/treasury"
)

// DefaultColor is the embed side bar color.
const DefaultColor = 0x00ffff

// Editor edits webhook messages. *discordgo.Session implements it.
type Editor interface {
	WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Webhook is a treasury.Publisher that edits a single existing webhook message.
type Webhook struct {
	editor    Editor
	id        string
	token     string
	messageID string
	color     int
	image     string
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithColor sets the embed color.
func WithColor(c int) WebhookOption { return func(w *Webhook) { w.color = c } }

// WithImage sets the embed image URL.
func WithImage(u string) WebhookOption { return func(w *Webhook) { w.image = u } }

// WithEditor replaces the discord session used to edit the message.
func WithEditor(e Editor) WebhookOption { return func(w *Webhook) { w.editor = e } }

// ParseWebhookURL extracts the webhook id and token from a URL like
// https://discord.com/api/webhooks/<id>/<token>.
func ParseWebhookURL(webhookURL string) (id, token string, err error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid webhook url %q: want .../webhooks/<id>/<token>", u.Redacted())
}

// NewWebhook returns a publisher editing messageID through the webhook at webhookURL.
func NewWebhook(webhookURL, messageID string, opts ...WebhookOption) (*Webhook, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	if messageID == "" {
		return nil, fmt.Errorf("no webhook message id")
	}
	w := &Webhook{id: id, token: token, messageID: messageID, color: DefaultColor}
	for _, opt := range opts {
		opt(w)
	}
	if w.editor == nil {
		// webhook endpoints are authenticated by their token
		s, err := discordgo.New("")
		if err != nil {
			return nil, err
		}
		w.editor = s
	}
	return w, nil
}

// Embed renders r as a Discord embed.
func (w *Webhook) Embed(r *treasury.Report) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:     r.Title,
		Color:     w.color,
		Timestamp: r.Summary.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if w.image != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: w.image}
	}
	for _, f := range r.Fields() {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}

// Publish replaces the embeds of the message with the report.
func (w *Webhook) Publish(ctx context.Context, r *treasury.Report) error {
	embeds := []*discordgo.MessageEmbed{w.Embed(r)}
	_, err := w.editor.WebhookMessageEdit(w.id, w.token, w.messageID, &discordgo.WebhookEdit{Embeds: &embeds}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: message %s: %w", treasury.ErrPublish, w.messageID, err)
	}
	return nil
}
