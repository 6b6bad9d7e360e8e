package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const threadsGraphAPI = "https://graph.threads.net/v1.0"

// ThreadsSender uses the same container/publish flow as Instagram but
// also accepts text-only posts.
type ThreadsSender struct {
	Client *http.Client
}

type threadsResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *ThreadsSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.ThreadsSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.AccessToken == "" || settings.UserID == "" {
		return errors.New("threads not configured")
	}

	text := captionText(post)
	images := imageURLs(post)

	body := map[string]any{
		"media_type":   "TEXT",
		"text":         text,
		"access_token": settings.AccessToken,
	}
	if video := videoURL(post); video != "" {
		body["media_type"] = "VIDEO"
		body["video_url"] = video
	} else if len(images) >= 2 {
		return s.publishCarousel(ctx, settings, text, images)
	} else if len(images) == 1 {
		body["media_type"] = "IMAGE"
		body["image_url"] = images[0]
	}

	containerID, err := s.createContainer(ctx, settings, body)
	if err != nil {
		return err
	}
	return s.publish(ctx, settings, containerID)
}

func (s *ThreadsSender) publishCarousel(ctx context.Context, settings models.ThreadsSettings, text string, images []string) error {
	var children []string
	for _, url := range images {
		id, err := s.createContainer(ctx, settings, map[string]any{
			"media_type":       "IMAGE",
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
		return errors.New("threads: no carousel items could be created")
	}

	containerID, err := s.createContainer(ctx, settings, map[string]any{
		"media_type":   "CAROUSEL",
		"children":     children,
		"text":         text,
		"access_token": settings.AccessToken,
	})
	if err != nil {
		return err
	}
	return s.publish(ctx, settings, containerID)
}

func (s *ThreadsSender) createContainer(ctx context.Context, settings models.ThreadsSettings, body map[string]any) (string, error) {
	var resp threadsResponse
	err := postJSON(ctx, s.Client, threadsGraphAPI+"/"+settings.UserID+"/threads", nil, body, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", errors.New("threads container failed: " + resp.Error.Message)
	}
	return resp.ID, nil
}

func (s *ThreadsSender) publish(ctx context.Context, settings models.ThreadsSettings, containerID string) error {
	if err := s.waitForContainer(ctx, settings, containerID); err != nil {
		return err
	}
	var resp threadsResponse
	err := postJSON(ctx, s.Client, threadsGraphAPI+"/"+settings.UserID+"/threads_publish", nil, map[string]any{
		"creation_id":  containerID,
		"access_token": settings.AccessToken,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.New("threads publish failed: " + resp.Error.Message)
	}
	return nil
}

func (s *ThreadsSender) waitForContainer(ctx context.Context, settings models.ThreadsSettings, containerID string) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			threadsGraphAPI+"/"+containerID+"?fields=status&access_token="+settings.AccessToken, nil)
		if err != nil {
			return err
		}
		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		var status threadsResponse
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			return err
		}

		switch status.Status {
		case "FINISHED":
			return nil
		case "ERROR":
			return errors.New("threads container processing failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return errors.New("threads container not ready in time")
}
