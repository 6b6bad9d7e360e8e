package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const blueskyAPI = "https://bsky.social/xrpc"

const (
	blueskyMaxPostLen   = 300
	blueskyMaxImageSize = 1_000_000
	blueskyMaxVideoSize = 50 * 1024 * 1024
)

// BlueskySender logs in with an app password and writes a feed post
// record over XRPC. Media is uploaded as blobs first.
type BlueskySender struct {
	Client *http.Client
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
}

func (s *BlueskySender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.BlueskySettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.Handle == "" || settings.AppPassword == "" {
		return errors.New("bluesky not configured")
	}

	session, err := s.createSession(ctx, settings.Handle, settings.AppPassword)
	if err != nil {
		return err
	}

	text := captionText(post)
	if post.ExternalLink != "" {
		text += "\n\n" + post.ExternalLink
	}
	text = truncateRunes(text, blueskyMaxPostLen)

	record := map[string]any{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	if embed := s.buildEmbed(ctx, session, post); embed != nil {
		record["embed"] = embed
	}
	if facets := parseFacets(text); len(facets) > 0 {
		record["facets"] = facets
	}

	return postJSON(ctx, s.Client, blueskyAPI+"/com.atproto.repo.createRecord",
		map[string]string{"Authorization": "Bearer " + session.AccessJwt},
		map[string]any{
			"repo":       session.DID,
			"collection": "app.bsky.feed.post",
			"record":     record,
		}, nil)
}

func (s *BlueskySender) createSession(ctx context.Context, handle, appPassword string) (*blueskySession, error) {
	var session blueskySession
	err := postJSON(ctx, s.Client, blueskyAPI+"/com.atproto.server.createSession", nil,
		map[string]string{"identifier": handle, "password": appPassword}, &session)
	if err != nil {
		return nil, err
	}
	if session.AccessJwt == "" {
		return nil, errors.New("bluesky login failed")
	}
	return &session, nil
}

// buildEmbed uploads the post's media and shapes the record embed.
// Upload failures degrade to a text-only post instead of failing the
// whole send.
func (s *BlueskySender) buildEmbed(ctx context.Context, session *blueskySession, post *models.NewsfeedPost) map[string]any {
	if video := videoURL(post); video != "" {
		blob := s.uploadBlob(ctx, session, video, blueskyMaxVideoSize)
		if blob != nil {
			return map[string]any{
				"$type": "app.bsky.embed.video",
				"video": blob,
			}
		}
		return nil
	}

	images := imageURLs(post)
	if len(images) > 4 {
		images = images[:4]
	}
	var embedded []map[string]any
	for _, url := range images {
		blob := s.uploadBlob(ctx, session, url, blueskyMaxImageSize)
		if blob == nil {
			continue
		}
		embedded = append(embedded, map[string]any{
			"alt":   post.Title,
			"image": blob,
		})
	}
	if len(embedded) == 0 {
		return nil
	}
	return map[string]any{
		"$type":  "app.bsky.embed.images",
		"images": embedded,
	}
}

func (s *BlueskySender) uploadBlob(ctx context.Context, session *blueskySession, mediaURL string, maxSize int) json.RawMessage {
	data, contentType, err := download(ctx, s.Client, mediaURL)
	if err != nil || len(data) > maxSize {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, blueskyAPI+"/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessJwt)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var result struct {
		Blob json.RawMessage `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil
	}
	return result.Blob
}

var (
	blueskyURLPattern = regexp.MustCompile(`https?://[^\s]+`)
	blueskyTagPattern = regexp.MustCompile(`#(\w+)`)
)

// parseFacets marks links and hashtags with byte ranges so clients
// render them as rich text.
func parseFacets(text string) []map[string]any {
	var facets []map[string]any

	for _, loc := range blueskyURLPattern.FindAllStringIndex(text, -1) {
		facets = append(facets, map[string]any{
			"index": map[string]int{"byteStart": loc[0], "byteEnd": loc[1]},
			"features": []map[string]any{{
				"$type": "app.bsky.richtext.facet#link",
				"uri":   text[loc[0]:loc[1]],
			}},
		})
	}
	for _, loc := range blueskyTagPattern.FindAllStringSubmatchIndex(text, -1) {
		facets = append(facets, map[string]any{
			"index": map[string]int{"byteStart": loc[0], "byteEnd": loc[1]},
			"features": []map[string]any{{
				"$type": "app.bsky.richtext.facet#tag",
				"tag":   text[loc[2]:loc[3]],
			}},
		})
	}
	return facets
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
