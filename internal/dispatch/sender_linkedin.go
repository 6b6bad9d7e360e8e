package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const linkedinAPI = "https://api.linkedin.com/v2"

const linkedinMaxVideoSize = 200 * 1024 * 1024

// LinkedInSender creates UGC posts for a member or an organization.
// Media goes through the assets registerUpload flow.
type LinkedInSender struct {
	Client *http.Client
}

func (s *LinkedInSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.LinkedInSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.AccessToken == "" {
		return errors.New("linkedin not configured")
	}

	owner, err := s.ownerURN(ctx, settings)
	if err != nil {
		return err
	}

	text := captionText(post)
	shareContent := map[string]any{
		"shareCommentary":    map[string]any{"text": text},
		"shareMediaCategory": "NONE",
	}

	if video := videoURL(post); video != "" {
		if asset := s.uploadAsset(ctx, settings.AccessToken, owner, video, "urn:li:digitalmediaRecipe:feedshare-video", linkedinMaxVideoSize); asset != "" {
			shareContent["shareMediaCategory"] = "VIDEO"
			shareContent["media"] = []map[string]any{{
				"status": "READY",
				"media":  asset,
				"title":  map[string]any{"text": post.Title},
			}}
		}
	}
	if shareContent["shareMediaCategory"] == "NONE" {
		if img := firstImageURL(post); img != "" {
			if asset := s.uploadAsset(ctx, settings.AccessToken, owner, img, "urn:li:digitalmediaRecipe:feedshare-image", 0); asset != "" {
				shareContent["shareMediaCategory"] = "IMAGE"
				shareContent["media"] = []map[string]any{{
					"status": "READY",
					"media":  asset,
				}}
			}
		}
	}

	return postJSON(ctx, s.Client, linkedinAPI+"/ugcPosts", map[string]string{
		"Authorization":             "Bearer " + settings.AccessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}, map[string]any{
		"author":         owner,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}, nil)
}

// ownerURN prefers the configured organization, then the cached person
// URN, and finally resolves the member id from the API.
func (s *LinkedInSender) ownerURN(ctx context.Context, settings models.LinkedInSettings) (string, error) {
	if settings.OrganizationID != "" {
		return "urn:li:organization:" + settings.OrganizationID, nil
	}
	if settings.PersonURN != "" {
		return settings.PersonURN, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkedinAPI+"/me", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+settings.AccessToken)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("linkedin profile lookup failed: " + resp.Status)
	}
	var me struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return "", err
	}
	return "urn:li:person:" + me.ID, nil
}

// uploadAsset registers an upload, pushes the bytes and returns the
// asset URN. Any failure returns "" so the post degrades to text.
func (s *LinkedInSender) uploadAsset(ctx context.Context, accessToken, owner, mediaURL, recipe string, maxSize int) string {
	data, contentType, err := download(ctx, s.Client, mediaURL)
	if err != nil {
		return ""
	}
	if maxSize > 0 && len(data) > maxSize {
		return ""
	}

	var register struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	err = postJSON(ctx, s.Client, linkedinAPI+"/assets?action=registerUpload",
		map[string]string{"Authorization": "Bearer " + accessToken},
		map[string]any{
			"registerUploadRequest": map[string]any{
				"recipes": []string{recipe},
				"owner":   owner,
				"serviceRelationships": []map[string]any{{
					"relationshipType": "OWNER",
					"identifier":       "urn:li:userGeneratedContent",
				}},
			},
		}, &register)
	if err != nil {
		return ""
	}

	uploadURL := ""
	for _, mech := range register.Value.UploadMechanism {
		if mech.UploadURL != "" {
			uploadURL = mech.UploadURL
			break
		}
	}
	if uploadURL == "" || register.Value.Asset == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.Client.Do(req)
	if err != nil {
		return ""
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	if recipe == "urn:li:digitalmediaRecipe:feedshare-video" {
		if err := s.waitForAsset(ctx, accessToken, register.Value.Asset); err != nil {
			return ""
		}
	}
	return register.Value.Asset
}

func (s *LinkedInSender) waitForAsset(ctx context.Context, accessToken, asset string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		linkedinAPI+"/assets/"+url.PathEscape(asset), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("linkedin asset status failed: " + resp.Status)
	}
	return nil
}
