package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const tiktokAPI = "https://open.tiktokapis.com/v2"

// TikTokSender pushes media through the content-posting API using
// PULL_FROM_URL, so TikTok fetches the files from the CDN itself. The
// compliance flags on the settings drive privacy and interaction
// options.
type TikTokSender struct {
	Client *http.Client
}

type tiktokResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *TikTokSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.TikTokSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.AccessToken == "" {
		return errors.New("tiktok not configured")
	}

	if video := videoURL(post); video != "" {
		return s.postVideo(ctx, settings, post, video)
	}

	images := imageURLs(post)
	if len(images) >= 2 {
		return s.postPhotos(ctx, settings, post, images)
	}
	return errors.New("tiktok requires a video or at least two images")
}

func (s *TikTokSender) postVideo(ctx context.Context, settings models.TikTokSettings, post *models.NewsfeedPost, video string) error {
	sourceInfo := map[string]any{
		"source":    "PULL_FROM_URL",
		"video_url": video,
	}

	// Unaudited clients may only post into the creator's inbox as a
	// draft; the creator publishes from the app.
	if settings.PostAsDraft {
		return s.call(ctx, settings, "/post/publish/inbox/video/init/", map[string]any{
			"source_info": sourceInfo,
		})
	}

	return s.call(ctx, settings, "/post/publish/video/init/", map[string]any{
		"post_info": map[string]any{
			"title":                    s.caption(post),
			"privacy_level":            s.privacyLevel(settings),
			"disable_duet":             !settings.AllowDuet,
			"disable_comment":          !settings.AllowComment,
			"disable_stitch":           !settings.AllowStitch,
			"brand_content_toggle":     settings.BrandedContent,
			"brand_organic_toggle":     settings.BrandOrganic,
			"is_aigc":                  false,
			"video_cover_timestamp_ms": 0,
		},
		"source_info": sourceInfo,
	})
}

func (s *TikTokSender) postPhotos(ctx context.Context, settings models.TikTokSettings, post *models.NewsfeedPost, images []string) error {
	// Photo carousels cap at 35 images.
	if len(images) > 35 {
		images = images[:35]
	}

	return s.call(ctx, settings, "/post/publish/content/init/", map[string]any{
		"media_type": "PHOTO",
		"post_mode":  "DIRECT_POST",
		"post_info": map[string]any{
			"title":                s.caption(post),
			"description":          post.Description,
			"privacy_level":        s.privacyLevel(settings),
			"disable_comment":      !settings.AllowComment,
			"brand_content_toggle": settings.BrandedContent,
			"brand_organic_toggle": settings.BrandOrganic,
		},
		"source_info": map[string]any{
			"source":            "PULL_FROM_URL",
			"photo_cover_index": 0,
			"photo_images":      images,
		},
	})
}

func (s *TikTokSender) call(ctx context.Context, settings models.TikTokSettings, path string, payload map[string]any) error {
	var resp tiktokResponse
	err := postJSON(ctx, s.Client, tiktokAPI+path,
		map[string]string{"Authorization": "Bearer " + settings.AccessToken}, payload, &resp)
	if err != nil {
		return err
	}
	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return errors.New("tiktok post failed: " + resp.Error.Message)
	}
	return nil
}

func (s *TikTokSender) caption(post *models.NewsfeedPost) string {
	caption := post.Title
	if line := hashtagLine(post); line != "" {
		caption += " " + line
	}
	// Titles are limited to 2200 characters; hashtags count.
	return truncateRunes(caption, 2200)
}

func (s *TikTokSender) privacyLevel(settings models.TikTokSettings) string {
	if settings.DefaultPrivacy != "" {
		return settings.DefaultPrivacy
	}
	return "SELF_ONLY"
}
