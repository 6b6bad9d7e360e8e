package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const (
	discordColorRegular = 0x5865F2
	discordColorShort   = 0xFF0080
)

// DiscordSender posts rich embeds through an incoming webhook.
type DiscordSender struct {
	Client *http.Client
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp"`
	Fields      []discordField `json:"fields"`
	Image       *struct {
		URL string `json:"url"`
	} `json:"image,omitempty"`
}

func (s *DiscordSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.DiscordSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.WebhookURL == "" {
		return errors.New("discord webhook not configured")
	}

	description := post.Description
	if post.IsShort {
		if line := hashtagLine(post); line != "" {
			description += "\n\n" + line
		}
	}

	color := discordColorRegular
	content := "📢 New post!"
	if post.IsShort {
		color = discordColorShort
		content = "📱 New short!"
	}

	embed := discordEmbed{
		Title:       post.Title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields:      []discordField{},
	}
	if post.Location != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "📍 Location", Value: post.Location, Inline: true})
	}
	if post.ExternalLink != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "🔗 Link", Value: post.ExternalLink, Inline: true})
	}

	// Webhooks cap attachments at 25MB, so videos go out as a link with
	// the thumbnail embedded.
	if video := videoURL(post); video != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "🎬 Video", Value: "[Watch video](" + video + ")"})
	}
	if img := firstImageURL(post); img != "" {
		embed.Image = &struct {
			URL string `json:"url"`
		}{URL: img}
	}

	return postJSON(ctx, s.Client, settings.WebhookURL, nil, map[string]any{
		"content": content,
		"embeds":  []discordEmbed{embed},
	}, nil)
}
