package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// MastodonSender posts statuses to any Mastodon-compatible instance.
// Media has to be downloaded and re-uploaded since instances do not
// pull remote URLs.
type MastodonSender struct {
	Client *http.Client
}

type mastodonMediaResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func (s *MastodonSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.MastodonSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.InstanceURL == "" || settings.AccessToken == "" {
		return errors.New("mastodon not configured")
	}
	instance := normalizeInstanceURL(settings.InstanceURL)

	var mediaIDs []string
	if video := videoURL(post); video != "" {
		if id, err := s.uploadMedia(ctx, instance, settings.AccessToken, video); err == nil {
			mediaIDs = append(mediaIDs, id)
		}
	} else {
		// Statuses carry at most four attachments.
		images := imageURLs(post)
		if len(images) > 4 {
			images = images[:4]
		}
		for _, url := range images {
			if id, err := s.uploadMedia(ctx, instance, settings.AccessToken, url); err == nil {
				mediaIDs = append(mediaIDs, id)
			}
		}
	}

	status := captionText(post)
	if post.ExternalLink != "" {
		status += "\n\n🔗 " + post.ExternalLink
	}

	body := map[string]any{
		"status":     status,
		"visibility": "public",
	}
	if len(mediaIDs) > 0 {
		body["media_ids"] = mediaIDs
	}

	return postJSON(ctx, s.Client, instance+"/api/v1/statuses",
		map[string]string{"Authorization": "Bearer " + settings.AccessToken}, body, nil)
}

// uploadMedia downloads the file and uploads it through the async v2
// media endpoint, waiting for processing when the instance returns 202.
func (s *MastodonSender) uploadMedia(ctx context.Context, instance, token, mediaURL string) (string, error) {
	data, _, err := download(ctx, s.Client, mediaURL)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileNameFromURL(mediaURL))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instance+"/api/v2/media", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", errors.New("mastodon media upload failed: " + resp.Status)
	}

	var media mastodonMediaResponse
	if err := json.Unmarshal(respBody, &media); err != nil {
		return "", err
	}

	// 202 means the instance is still processing; poll before attaching.
	if resp.StatusCode == http.StatusAccepted {
		if err := s.waitForMedia(ctx, instance, token, media.ID); err != nil {
			return "", err
		}
	}
	return media.ID, nil
}

func (s *MastodonSender) waitForMedia(ctx context.Context, instance, token, mediaID string) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, instance+"/api/v1/media/"+mediaID, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return errors.New("mastodon media not ready in time")
}

func normalizeInstanceURL(instance string) string {
	instance = strings.TrimRight(strings.TrimSpace(instance), "/")
	if !strings.HasPrefix(instance, "http://") && !strings.HasPrefix(instance, "https://") {
		instance = "https://" + instance
	}
	return instance
}

func fileNameFromURL(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		return url[i+1:]
	}
	return "media"
}
