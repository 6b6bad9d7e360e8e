package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// YouTubeSender uploads Shorts through the Data API. The token source
// refreshes expired access tokens with the tenant's OAuth client.
type YouTubeSender struct {
	Client    *http.Client
	CDNDomain string
}

func (s *YouTubeSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.YouTubeSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.AccessToken == "" {
		return errors.New("youtube not configured")
	}

	video := videoURL(post)
	if video == "" && post.VideoKey != "" {
		video = "https://" + s.CDNDomain + "/" + post.VideoKey
	}
	if video == "" {
		return errors.New("youtube requires a video")
	}

	data, _, err := download(ctx, s.Client, video)
	if err != nil {
		return err
	}

	service, err := youtube.NewService(ctx, option.WithTokenSource(s.tokenSource(ctx, settings)))
	if err != nil {
		return err
	}

	title := post.Title
	if post.IsShort && !strings.Contains(strings.ToLower(title), "#shorts") {
		title += " #Shorts"
	}

	description := post.Description
	if post.ExternalLink != "" {
		description += "\n\n" + post.ExternalLink
	}
	if line := hashtagLine(post); line != "" {
		description += "\n\n" + line
	}

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncateRunes(title, 100),
			Description: description,
			Tags:        post.Tags,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, upload)
	_, err = call.Media(bytes.NewReader(data)).Context(ctx).Do()
	return err
}

// tokenSource refreshes through the tenant's own OAuth client when a
// refresh token is on file, otherwise uses the access token as-is.
func (s *YouTubeSender) tokenSource(ctx context.Context, settings models.YouTubeSettings) oauth2.TokenSource {
	token := &oauth2.Token{
		AccessToken:  settings.AccessToken,
		RefreshToken: settings.RefreshToken,
	}
	if settings.RefreshToken == "" || settings.ClientID == "" {
		return oauth2.StaticTokenSource(token)
	}
	conf := &oauth2.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		Endpoint:     google.Endpoint,
	}
	return conf.TokenSource(ctx, token)
}
