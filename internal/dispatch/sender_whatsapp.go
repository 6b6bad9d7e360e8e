package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// WhatsAppSender announces posts over the Cloud API using the platform
// business account token; tenants only bring their phone number id and
// the announcement number.
type WhatsAppSender struct {
	Client      *http.Client
	AccessToken string
}

func (s *WhatsAppSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.WhatsAppSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if s.AccessToken == "" || settings.PhoneNumberID == "" || settings.WhatsAppNumber == "" {
		return errors.New("whatsapp not configured")
	}

	to := settings.WhatsAppNumber
	if !strings.HasPrefix(to, "+") {
		to = "+" + to
	}

	text := captionText(post)
	if post.ExternalLink != "" {
		text += "\n\n🔗 " + post.ExternalLink
	}

	message := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
	}
	// One media item per message; video wins over image.
	if video := videoURL(post); video != "" {
		message["type"] = "video"
		message["video"] = map[string]any{"link": video, "caption": text}
	} else if img := firstImageURL(post); img != "" {
		message["type"] = "image"
		message["image"] = map[string]any{"link": img, "caption": text}
	} else {
		message["type"] = "text"
		message["text"] = map[string]any{"body": text}
	}

	return postJSON(ctx, s.Client, facebookGraphAPI+"/"+settings.PhoneNumberID+"/messages",
		map[string]string{"Authorization": "Bearer " + s.AccessToken}, message, nil)
}
