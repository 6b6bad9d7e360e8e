package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// SlackSender posts Block Kit messages through an incoming webhook.
// Webhooks cannot upload video, so videos render as thumbnail plus a
// link button.
type SlackSender struct {
	Client *http.Client
}

func (s *SlackSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.SlackSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.WebhookURL == "" {
		return errors.New("slack webhook not configured")
	}

	title := strings.TrimSpace(post.Title)
	description := strings.TrimSpace(post.Description)
	// Avoid repeating the title when the description just restates it.
	if description == title || strings.HasPrefix(description, title) {
		description = ""
	}
	if post.IsShort {
		if line := hashtagLine(post); line != "" {
			if description != "" {
				description += "\n\n"
			}
			description += line
		}
	}

	header := "📢 " + title
	if post.IsShort {
		header = "📱 " + title
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": header, "emoji": true},
		},
	}
	if description != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": description},
		})
	}
	if post.Location != "" {
		blocks = append(blocks, map[string]any{
			"type":     "context",
			"elements": []map[string]any{{"type": "mrkdwn", "text": "📍 " + post.Location}},
		})
	}

	video := videoURL(post)
	if img := firstImageURL(post); img != "" {
		alt := title
		if alt == "" {
			alt = "Post image"
		}
		blocks = append(blocks, map[string]any{
			"type":      "image",
			"image_url": img,
			"alt_text":  alt,
		})
	}
	if video != "" {
		blocks = append(blocks, map[string]any{
			"type": "actions",
			"elements": []map[string]any{{
				"type": "button",
				"text": map[string]any{"type": "plain_text", "text": "🎬 Watch video", "emoji": true},
				"url":  video,
			}},
		})
	}
	if post.ExternalLink != "" {
		blocks = append(blocks, map[string]any{
			"type": "actions",
			"elements": []map[string]any{{
				"type": "button",
				"text": map[string]any{"type": "plain_text", "text": "Read more →", "emoji": true},
				"url":  post.ExternalLink,
			}},
		})
	}

	return postJSON(ctx, s.Client, settings.WebhookURL, nil, map[string]any{"blocks": blocks}, nil)
}
