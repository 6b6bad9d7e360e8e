package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// SignalSender talks to a self-hosted signal-cli REST API instance and
// posts into the tenant's announcement group. Media travels inline as
// base64 attachments.
type SignalSender struct {
	Client *http.Client
}

func (s *SignalSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.SignalSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.APIURL == "" || settings.PhoneNumber == "" || settings.GroupID == "" {
		return errors.New("signal not configured")
	}

	text := captionText(post)
	if post.ExternalLink != "" {
		text += "\n\n🔗 " + post.ExternalLink
	}

	payload := map[string]any{
		"message":    text,
		"number":     settings.PhoneNumber,
		"recipients": []string{settings.GroupID},
	}

	mediaURL := videoURL(post)
	if mediaURL == "" {
		mediaURL = firstImageURL(post)
	}
	if mediaURL != "" {
		if data, _, err := download(ctx, s.Client, mediaURL); err == nil {
			payload["base64_attachments"] = []string{base64.StdEncoding.EncodeToString(data)}
		}
	}

	apiURL := strings.TrimRight(settings.APIURL, "/")
	return postJSON(ctx, s.Client, apiURL+"/v2/send", nil, payload, nil)
}
