package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const telegramAPI = "https://api.telegram.org/bot"

// TelegramSender posts via the Bot API. Media is passed by URL so
// Telegram pulls it from the CDN itself.
type TelegramSender struct {
	Client *http.Client
}

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (s *TelegramSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.TelegramSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.BotToken == "" || settings.ChatID == "" {
		return errors.New("telegram not configured")
	}

	message := s.buildMessage(post)
	images := imageURLs(post)
	video := videoURL(post)

	// Shorts carry vertical video; send it directly.
	if post.IsShort && video != "" {
		return s.call(ctx, settings.BotToken, "sendVideo", map[string]any{
			"chat_id":    settings.ChatID,
			"video":      video,
			"caption":    message,
			"parse_mode": "HTML",
		})
	}

	mediaCount := len(images)
	if video != "" {
		mediaCount++
	}
	if mediaCount > 1 {
		if err := s.sendMediaGroup(ctx, settings, message, video, images); err == nil {
			return nil
		}
		// Fall through to single-media sends when the album is rejected.
	}

	if video != "" {
		err := s.call(ctx, settings.BotToken, "sendVideo", map[string]any{
			"chat_id":    settings.ChatID,
			"video":      video,
			"caption":    message,
			"parse_mode": "HTML",
		})
		if err == nil {
			return nil
		}
		if len(images) == 0 {
			return err
		}
		// Video rejected, post the thumbnail instead.
	}

	if len(images) > 0 {
		return s.call(ctx, settings.BotToken, "sendPhoto", map[string]any{
			"chat_id":    settings.ChatID,
			"photo":      images[0],
			"caption":    message,
			"parse_mode": "HTML",
		})
	}

	return s.call(ctx, settings.BotToken, "sendMessage", map[string]any{
		"chat_id":    settings.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	})
}

func (s *TelegramSender) sendMediaGroup(ctx context.Context, settings models.TelegramSettings, message, video string, images []string) error {
	return s.call(ctx, settings.BotToken, "sendMediaGroup", map[string]any{
		"chat_id": settings.ChatID,
		"media":   mediaGroupItems(message, video, images),
	})
}

// mediaGroupItems assembles the album: the video leads when present, and
// the caption rides on the first item.
func mediaGroupItems(message, video string, images []string) []map[string]any {
	var media []map[string]any
	if video != "" {
		media = append(media, map[string]any{
			"type": "video", "media": video, "caption": message, "parse_mode": "HTML",
		})
	}
	for i, url := range images {
		item := map[string]any{"type": "photo", "media": url}
		if i == 0 && video == "" {
			item["caption"] = message
			item["parse_mode"] = "HTML"
		}
		media = append(media, item)
	}
	return media
}

func (s *TelegramSender) call(ctx context.Context, token, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, telegramAPI+token+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var tr telegramResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return errors.New("telegram " + method + " failed: " + resp.Status)
	}
	if !tr.OK {
		if tr.Description != "" {
			return errors.New("telegram " + method + " failed: " + tr.Description)
		}
		return errors.New("telegram " + method + " failed: " + resp.Status)
	}
	return nil
}

// buildMessage renders the HTML caption: title, description, location,
// link and hashtags.
func (s *TelegramSender) buildMessage(post *models.NewsfeedPost) string {
	var b strings.Builder
	b.WriteString("📢 <b>" + escapeHTML(post.Title) + "</b>\n\n" + escapeHTML(post.Description))
	if post.Location != "" {
		b.WriteString("\n\n📍 " + escapeHTML(post.Location))
	}
	if post.LocationURL != "" {
		b.WriteString("\n🗺️ <a href=\"" + post.LocationURL + "\">Map</a>")
	}
	if post.ExternalLink != "" {
		b.WriteString("\n\n🔗 <a href=\"" + post.ExternalLink + "\">Read more</a>")
	}
	if line := hashtagLine(post); line != "" {
		b.WriteString("\n\n" + line)
	}
	return b.String()
}

// escapeHTML covers the three characters Telegram's HTML parse mode
// requires escaping.
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
