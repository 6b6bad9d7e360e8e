package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const instagramGraphAPI = "https://graph.instagram.com/v21.0"

// InstagramSender publishes via the container flow: create a media
// container, wait until it is processed, then publish it. Text-only
// posts are filtered out before the sender runs.
type InstagramSender struct {
	Client *http.Client
}

type instagramContainerResponse struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *InstagramSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.InstagramSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.AccessToken == "" || settings.AccountID == "" {
		return errors.New("instagram not configured")
	}

	caption := captionText(post)
	images := imageURLs(post)

	if video := videoURL(post); video != "" {
		return s.publishContainer(ctx, settings, map[string]any{
			"media_type":   "REELS",
			"video_url":    video,
			"caption":      caption,
			"access_token": settings.AccessToken,
		}, 60)
	}

	if len(images) >= 2 {
		return s.publishCarousel(ctx, settings, caption, images)
	}
	if len(images) == 1 {
		return s.publishContainer(ctx, settings, map[string]any{
			"image_url":    images[0],
			"caption":      caption,
			"access_token": settings.AccessToken,
		}, 30)
	}
	return errors.New("instagram requires media")
}

func (s *InstagramSender) publishCarousel(ctx context.Context, settings models.InstagramSettings, caption string, images []string) error {
	// Carousels cap out at ten items.
	if len(images) > 10 {
		images = images[:10]
	}

	var children []string
	for _, url := range images {
		id, err := s.createContainer(ctx, settings, map[string]any{
			"image_url":        url,
			"is_carousel_item": true,
			"access_token":     settings.AccessToken,
		})
		if err != nil {
			continue
		}
		children = append(children, id)
	}
	if len(children) == 0 {
		return errors.New("instagram: no carousel items could be created")
	}

	return s.publishContainer(ctx, settings, map[string]any{
		"media_type":   "CAROUSEL",
		"children":     children,
		"caption":      caption,
		"access_token": settings.AccessToken,
	}, 30)
}

func (s *InstagramSender) createContainer(ctx context.Context, settings models.InstagramSettings, body map[string]any) (string, error) {
	var resp instagramContainerResponse
	err := postJSON(ctx, s.Client, instagramGraphAPI+"/"+settings.AccountID+"/media", nil, body, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", errors.New("instagram container failed: " + resp.Error.Message)
	}
	return resp.ID, nil
}

func (s *InstagramSender) publishContainer(ctx context.Context, settings models.InstagramSettings, body map[string]any, maxWaitSeconds int) error {
	containerID, err := s.createContainer(ctx, settings, body)
	if err != nil {
		return err
	}
	if err := s.waitForContainer(ctx, settings, containerID, maxWaitSeconds); err != nil {
		return err
	}

	var resp instagramContainerResponse
	err = postJSON(ctx, s.Client, instagramGraphAPI+"/"+settings.AccountID+"/media_publish", nil, map[string]any{
		"creation_id":  containerID,
		"access_token": settings.AccessToken,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.New("instagram publish failed: " + resp.Error.Message)
	}
	return nil
}

// waitForContainer polls the container until Instagram finishes
// processing it. Videos take noticeably longer than images.
func (s *InstagramSender) waitForContainer(ctx context.Context, settings models.InstagramSettings, containerID string, maxWaitSeconds int) error {
	deadline := time.Now().Add(time.Duration(maxWaitSeconds) * time.Second)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			instagramGraphAPI+"/"+containerID+"?fields=status_code&access_token="+settings.AccessToken, nil)
		if err != nil {
			return err
		}
		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		var status instagramContainerResponse
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			return err
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return errors.New("instagram container processing failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return errors.New("instagram container not ready in time")
}
