package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const (
	twitterAPI         = "https://api.twitter.com/2"
	twitterUploadAPI   = "https://upload.twitter.com/1.1/media/upload.json"
	twitterMaxTweetLen = 280
)

// XTwitterSender posts tweets over the v2 API. Accounts connected via
// OAuth 2.0 use bearer tokens with refresh; accounts configured with
// developer keys sign requests with OAuth 1.0a, which is also the only
// path that can upload media.
type XTwitterSender struct {
	Client *http.Client
}

func (s *XTwitterSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.XTwitterSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}

	text := s.buildTweet(post)

	if settings.OAuth2AccessToken != "" {
		return s.postOAuth2(ctx, settings, text)
	}
	if settings.APIKey != "" && settings.AccessToken != "" {
		return s.postOAuth1(ctx, settings, text, post)
	}
	return errors.New("x not configured")
}

func (s *XTwitterSender) buildTweet(post *models.NewsfeedPost) string {
	text := post.Title + "\n\n" + post.Description
	if post.ExternalLink != "" {
		text += "\n\n" + post.ExternalLink
	}
	if line := hashtagLine(post); line != "" {
		text += "\n\n" + line
	}
	return truncateRunes(text, twitterMaxTweetLen)
}

func (s *XTwitterSender) postOAuth2(ctx context.Context, settings models.XTwitterSettings, text string) error {
	err := s.postTweet(ctx, "Bearer "+settings.OAuth2AccessToken, text, "")
	if err == nil {
		return nil
	}
	if settings.OAuth2Refresh == "" {
		return err
	}

	token, refreshErr := s.refreshToken(ctx, settings)
	if refreshErr != nil {
		return refreshErr
	}
	return s.postTweet(ctx, "Bearer "+token, text, "")
}

func (s *XTwitterSender) refreshToken(ctx context.Context, settings models.XTwitterSettings) (string, error) {
	form := url.Values{}
	form.Set("refresh_token", settings.OAuth2Refresh)
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", settings.ClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterAPI+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(settings.ClientID + ":" + settings.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		var tokenErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &tokenErr) == nil && tokenErr.Error != "" {
			if tokenErr.Error == "invalid_grant" || tokenErr.Error == "invalid_request" {
				return "", errors.New("x connection expired, reconnect required")
			}
			if tokenErr.ErrorDescription != "" {
				return "", errors.New("x token refresh failed: " + tokenErr.ErrorDescription)
			}
		}
		return "", errors.New("x token refresh failed: " + resp.Status)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (s *XTwitterSender) postOAuth1(ctx context.Context, settings models.XTwitterSettings, text string, post *models.NewsfeedPost) error {
	mediaID := ""
	if img := firstImageURL(post); img != "" && !post.HasVideo() {
		if id, err := s.uploadMedia(ctx, settings, img); err == nil {
			mediaID = id
		}
	}

	tweetURL := twitterAPI + "/tweets"
	auth := oauth1Header(http.MethodPost, tweetURL, nil, settings)
	return s.postTweet(ctx, auth, text, mediaID)
}

func (s *XTwitterSender) postTweet(ctx context.Context, authorization, text, mediaID string) error {
	payload := map[string]any{"text": text}
	if mediaID != "" {
		payload["media"] = map[string]any{"media_ids": []string{mediaID}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterAPI+"/tweets", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authorization)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail != "" {
			return errors.New("tweet failed: " + apiErr.Detail)
		}
		return errors.New("tweet failed: " + resp.Status)
	}
	return nil
}

// uploadMedia pushes an image through the v1.1 upload endpoint, the one
// OAuth 1.0a path that still works on the free tier.
func (s *XTwitterSender) uploadMedia(ctx context.Context, settings models.XTwitterSettings, mediaURL string) (string, error) {
	data, _, err := download(ctx, s.Client, mediaURL)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterUploadAPI, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", oauth1Header(http.MethodPost, twitterUploadAPI, nil, settings))

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.New("x media upload failed: " + resp.Status)
	}
	var result struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.MediaIDString, nil
}

// oauth1Header builds an OAuth 1.0a HMAC-SHA1 Authorization header.
// JSON and multipart bodies contribute no parameters to the signature
// base string.
func oauth1Header(method, rawURL string, extraParams map[string]string, settings models.XTwitterSettings) string {
	nonceBytes := make([]byte, 16)
	rand.Read(nonceBytes)

	oauthParams := map[string]string{
		"oauth_consumer_key":     settings.APIKey,
		"oauth_nonce":            hex.EncodeToString(nonceBytes),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", time.Now().Unix()),
		"oauth_token":            settings.AccessToken,
		"oauth_version":          "1.0",
	}

	params := make(map[string]string, len(oauthParams)+len(extraParams))
	for k, v := range oauthParams {
		params[k] = v
	}
	for k, v := range extraParams {
		params[k] = v
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}

	base := strings.ToUpper(method) + "&" + percentEncode(rawURL) + "&" + percentEncode(strings.Join(pairs, "&"))
	signingKey := percentEncode(settings.APISecret) + "&" + percentEncode(settings.AccessTokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headerKeys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)

	headerPairs := make([]string, 0, len(headerKeys))
	for _, k := range headerKeys {
		headerPairs = append(headerPairs, percentEncode(k)+`="`+percentEncode(oauthParams[k])+`"`)
	}
	return "OAuth " + strings.Join(headerPairs, ", ")
}

// percentEncode applies RFC 3986 encoding, which url.QueryEscape almost
// but not quite does.
func percentEncode(s string) string {
	encoded := url.QueryEscape(s)
	encoded = strings.ReplaceAll(encoded, "+", "%20")
	encoded = strings.ReplaceAll(encoded, "*", "%2A")
	encoded = strings.ReplaceAll(encoded, "%7E", "~")
	return encoded
}
