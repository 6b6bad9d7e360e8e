package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const facebookGraphAPI = "https://graph.facebook.com/v18.0"

// FacebookSender posts to a page feed using a page access token.
type FacebookSender struct {
	Client *http.Client
}

type facebookPostResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *FacebookSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.FacebookSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.PageAccessToken == "" || settings.PageID == "" {
		return errors.New("facebook not configured")
	}

	message := captionText(post)
	images := imageURLs(post)

	if video := videoURL(post); video != "" {
		err := s.postVideo(ctx, settings, message, video)
		if err == nil {
			return nil
		}
		if len(images) == 0 {
			return err
		}
		// Video rejected, fall back to the image post.
	}

	if len(images) >= 2 {
		return s.postMultiPhoto(ctx, settings, message, images)
	}

	endpoint := facebookGraphAPI + "/" + settings.PageID + "/feed"
	body := map[string]any{
		"message":      message,
		"access_token": settings.PageAccessToken,
	}
	if len(images) == 1 {
		endpoint = facebookGraphAPI + "/" + settings.PageID + "/photos"
		body["url"] = images[0]
	} else if post.ExternalLink != "" {
		body["link"] = post.ExternalLink
	}

	var resp facebookPostResponse
	if err := postJSON(ctx, s.Client, endpoint, nil, body, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.New("facebook post failed: " + resp.Error.Message)
	}
	return nil
}

func (s *FacebookSender) postVideo(ctx context.Context, settings models.FacebookSettings, message, video string) error {
	var resp facebookPostResponse
	err := postJSON(ctx, s.Client, facebookGraphAPI+"/"+settings.PageID+"/videos", nil, map[string]any{
		"file_url":     video,
		"description":  message,
		"access_token": settings.PageAccessToken,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.New("facebook video failed: " + resp.Error.Message)
	}
	return nil
}

// postMultiPhoto uploads each photo unpublished, then creates one feed
// post referencing them all.
func (s *FacebookSender) postMultiPhoto(ctx context.Context, settings models.FacebookSettings, message string, images []string) error {
	var photoIDs []string
	for _, url := range images {
		var resp facebookPostResponse
		err := postJSON(ctx, s.Client, facebookGraphAPI+"/"+settings.PageID+"/photos", nil, map[string]any{
			"url":          url,
			"published":    false,
			"access_token": settings.PageAccessToken,
		}, &resp)
		if err != nil || resp.Error != nil {
			continue
		}
		photoIDs = append(photoIDs, resp.ID)
	}
	if len(photoIDs) == 0 {
		return errors.New("facebook: no photos could be uploaded")
	}

	attached := make([]map[string]string, 0, len(photoIDs))
	for _, id := range photoIDs {
		attached = append(attached, map[string]string{"media_fbid": id})
	}

	var resp facebookPostResponse
	err := postJSON(ctx, s.Client, facebookGraphAPI+"/"+settings.PageID+"/feed", nil, map[string]any{
		"message":        message,
		"attached_media": attached,
		"access_token":   settings.PageAccessToken,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.New("facebook multi-photo failed: " + resp.Error.Message)
	}
	return nil
}
