package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// videoURL returns the post's playable video URL, empty when the post
// carries no video. Media URLs are resolved by the newsfeed service
// before dispatch.
func videoURL(post *models.NewsfeedPost) string {
	return post.VideoURL
}

// imageURLs collects every image URL on the post, falling back to the
// single-image field for older posts.
func imageURLs(post *models.NewsfeedPost) []string {
	if len(post.ImageURLs) > 0 {
		return post.ImageURLs
	}
	if post.ImageURL != "" {
		return []string{post.ImageURL}
	}
	return nil
}

func firstImageURL(post *models.NewsfeedPost) string {
	urls := imageURLs(post)
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// hashtagLine joins the post's tags as hashtags, or returns "".
func hashtagLine(post *models.NewsfeedPost) string {
	if len(post.Tags) == 0 {
		return ""
	}
	tags := make([]string, 0, len(post.Tags))
	for _, t := range post.Tags {
		tags = append(tags, "#"+t)
	}
	return strings.Join(tags, " ")
}

// captionText builds the plain-text caption most channels share: title,
// description, optional location line and hashtags.
func captionText(post *models.NewsfeedPost) string {
	var b strings.Builder
	b.WriteString("📢 " + post.Title + "\n\n" + post.Description)
	if post.Location != "" {
		b.WriteString("\n\n📍 " + post.Location)
	}
	if line := hashtagLine(post); line != "" {
		b.WriteString("\n\n" + line)
	}
	return b.String()
}

// postJSON sends a JSON payload and decodes the JSON response into out
// when out is non-nil. Non-2xx responses come back as errors carrying the
// response body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, truncate(string(data), 300))
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

// download fetches a media file, returning its bytes and content type.
func download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func unmarshalSettings(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, v)
}
