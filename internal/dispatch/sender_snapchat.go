package dispatch

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

const snapchatAPI = "https://businessapi.snapchat.com/v1"

const snapchatChunkSize = 32 * 1024 * 1024

// SnapchatSender posts to a public profile. The API demands media be
// AES-256-CBC encrypted client side, with key and IV registered on the
// media container.
type SnapchatSender struct {
	Client *http.Client
}

type snapchatMediaResponse struct {
	MediaID string `json:"media_id"`
	AddPath string `json:"add_path"`
}

func (s *SnapchatSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.SnapchatSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.AccessToken == "" || settings.ProfileID == "" {
		return errors.New("snapchat not configured")
	}

	mediaURL := videoURL(post)
	mediaType := "VIDEO"
	if mediaURL == "" {
		mediaURL = firstImageURL(post)
		mediaType = "IMAGE"
	}
	if mediaURL == "" {
		return errors.New("snapchat requires media")
	}

	data, _, err := download(ctx, s.Client, mediaURL)
	if err != nil {
		return err
	}

	mediaID, err := s.uploadMedia(ctx, settings, data, mediaType)
	if err != nil {
		return err
	}

	if settings.PostAsStory {
		return s.postJSONChecked(ctx, settings,
			snapchatAPI+"/public_profiles/"+settings.ProfileID+"/stories",
			map[string]any{"media_id": mediaID})
	}
	return s.postJSONChecked(ctx, settings,
		snapchatAPI+"/public_profiles/"+settings.ProfileID+"/spotlights",
		map[string]any{
			"media_id":    mediaID,
			"description": truncateRunes(post.Title, 160),
			"locale":      "en_US",
		})
}

// uploadMedia encrypts the file, registers a container carrying the key
// and IV, streams the ciphertext in 32MB parts and finalizes the upload.
func (s *SnapchatSender) uploadMedia(ctx context.Context, settings models.SnapchatSettings, data []byte, mediaType string) (string, error) {
	encrypted, key, iv, err := encryptSnapchatMedia(data)
	if err != nil {
		return "", err
	}

	var media snapchatMediaResponse
	err = postJSON(ctx, s.Client, snapchatAPI+"/public_profiles/"+settings.ProfileID+"/media",
		map[string]string{"Authorization": "Bearer " + settings.AccessToken},
		map[string]any{
			"type": mediaType,
			"name": fmt.Sprintf("upload_%d", time.Now().UnixMilli()),
			"key":  key,
			"iv":   iv,
		}, &media)
	if err != nil {
		return "", err
	}
	if media.MediaID == "" || media.AddPath == "" {
		return "", errors.New("snapchat media container missing upload path")
	}

	totalParts := (len(encrypted) + snapchatChunkSize - 1) / snapchatChunkSize
	for part := 1; part <= totalParts; part++ {
		start := (part - 1) * snapchatChunkSize
		end := start + snapchatChunkSize
		if end > len(encrypted) {
			end = len(encrypted)
		}
		if err := s.uploadPart(ctx, settings, media.AddPath, part, encrypted[start:end]); err != nil {
			return "", err
		}
	}

	if err := s.postJSONChecked(ctx, settings, media.AddPath, map[string]any{"action": "FINALIZE"}); err != nil {
		return "", err
	}
	return media.MediaID, nil
}

func (s *SnapchatSender) uploadPart(ctx context.Context, settings models.SnapchatSettings, addPath string, partNumber int, chunk []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("action", "ADD")
	writer.WriteField("part_number", fmt.Sprintf("%d", partNumber))
	part, err := writer.CreateFormFile("file", "media.bin")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addPath, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+settings.AccessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("snapchat upload part %d failed: %s", partNumber, resp.Status)
	}
	return nil
}

func (s *SnapchatSender) postJSONChecked(ctx context.Context, settings models.SnapchatSettings, url string, payload map[string]any) error {
	return postJSON(ctx, s.Client, url,
		map[string]string{"Authorization": "Bearer " + settings.AccessToken}, payload, nil)
}

// encryptSnapchatMedia encrypts with a random 256-bit key and 128-bit
// IV, PKCS#7 padded, returning the key and IV base64 encoded for the
// container registration.
func encryptSnapchatMedia(data []byte) ([]byte, string, string, error) {
	key := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(key); err != nil {
		return nil, "", "", err
	}
	if _, err := rand.Read(iv); err != nil {
		return nil, "", "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, "", "", err
	}

	padLen := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return encrypted,
		base64.StdEncoding.EncodeToString(key),
		base64.StdEncoding.EncodeToString(iv),
		nil
}
