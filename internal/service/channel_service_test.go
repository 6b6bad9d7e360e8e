package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/creatorhub/crosspost-api/pkg/utils"
)

// 32 bytes for AES-256.
const testSecretKey = "0123456789abcdef0123456789abcdef"

type stubChannelSettingsRepo struct {
	sealed map[string]string
	failOn map[string]error
}

func (r *stubChannelSettingsRepo) Get(ctx context.Context, tenantID, channelID string) (string, bool, error) {
	if err, ok := r.failOn[channelID]; ok {
		return "", false, err
	}
	s, ok := r.sealed[tenantID+"/"+channelID]
	return s, ok, nil
}

func (r *stubChannelSettingsRepo) Put(ctx context.Context, tenantID, channelID, sealed string) error {
	if r.sealed == nil {
		r.sealed = map[string]string{}
	}
	r.sealed[tenantID+"/"+channelID] = sealed
	return nil
}

func TestChannelSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown channel rejected", func(t *testing.T) {
		s := NewChannelService(&stubChannelSettingsRepo{}, testSecretKey)
		if _, err := s.GetSettings(ctx, "t1", "myspace"); err == nil {
			t.Error("expected error for unknown channel")
		}
	})

	t.Run("missing settings default to disabled", func(t *testing.T) {
		s := NewChannelService(&stubChannelSettingsRepo{}, testSecretKey)
		raw, err := s.GetSettings(ctx, "t1", "telegram")
		if err != nil {
			t.Fatal(err)
		}
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			t.Fatal(err)
		}
		if enabled, _ := cfg["enabled"].(bool); enabled {
			t.Error("default settings must be disabled")
		}
	})

	t.Run("settings round trip sealed", func(t *testing.T) {
		repo := &stubChannelSettingsRepo{}
		s := NewChannelService(repo, testSecretKey)

		_, err := s.UpdateSettings(ctx, "t1", "telegram", json.RawMessage(`{"enabled":true,"botToken":"abc","chatId":"42"}`))
		if err != nil {
			t.Fatal(err)
		}

		sealed := repo.sealed["t1/telegram"]
		if sealed == "" {
			t.Fatal("nothing stored")
		}
		if json.Valid([]byte(sealed)) {
			t.Error("stored blob is plaintext JSON, expected sealed data")
		}

		raw, err := s.GetSettings(ctx, "t1", "telegram")
		if err != nil {
			t.Fatal(err)
		}
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			t.Fatal(err)
		}
		if cfg["botToken"] != "abc" {
			t.Errorf("botToken = %v, want abc", cfg["botToken"])
		}
	})

	t.Run("partial update keeps stored credentials", func(t *testing.T) {
		repo := &stubChannelSettingsRepo{}
		s := NewChannelService(repo, testSecretKey)

		if _, err := s.UpdateSettings(ctx, "t1", "telegram", json.RawMessage(`{"enabled":true,"botToken":"abc","chatId":"42"}`)); err != nil {
			t.Fatal(err)
		}
		if _, err := s.UpdateSettings(ctx, "t1", "telegram", json.RawMessage(`{"enabled":false}`)); err != nil {
			t.Fatal(err)
		}

		raw, err := s.GetSettings(ctx, "t1", "telegram")
		if err != nil {
			t.Fatal(err)
		}
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			t.Fatal(err)
		}
		if cfg["botToken"] != "abc" {
			t.Error("partial update wiped the bot token")
		}
		if enabled, _ := cfg["enabled"].(bool); enabled {
			t.Error("enabled flag was not updated")
		}
	})

	t.Run("corrupt blob falls back to defaults", func(t *testing.T) {
		repo := &stubChannelSettingsRepo{sealed: map[string]string{"t1/telegram": "not base64!!"}}
		s := NewChannelService(repo, testSecretKey)

		raw, err := s.GetSettings(ctx, "t1", "telegram")
		if err != nil {
			t.Fatal(err)
		}
		if string(raw) != `{"enabled":false}` {
			t.Errorf("got %s, want disabled defaults", raw)
		}
	})
}

func TestEnabledChannels(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, repo *stubChannelSettingsRepo, channelID, settings string) {
		t.Helper()
		sealed, err := utils.Encrypt([]byte(settings), []byte(testSecretKey))
		if err != nil {
			t.Fatal(err)
		}
		if repo.sealed == nil {
			repo.sealed = map[string]string{}
		}
		repo.sealed["t1/"+channelID] = sealed
	}

	t.Run("only configured channels listed", func(t *testing.T) {
		repo := &stubChannelSettingsRepo{}
		seed(t, repo, "telegram", `{"enabled":true,"botToken":"abc","chatId":"42","chatName":"My Channel"}`)
		seed(t, repo, "discord", `{"enabled":true}`) // enabled but no webhook
		seed(t, repo, "slack", `{"enabled":false,"webhookUrl":"https://hooks.slack.com/x"}`)
		s := NewChannelService(repo, testSecretKey)

		channels, err := s.GetEnabledChannels(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if len(channels) != 1 {
			t.Fatalf("got %d channels, want 1: %+v", len(channels), channels)
		}
		if channels[0].ID != "telegram" {
			t.Errorf("channel = %s, want telegram", channels[0].ID)
		}
		if channels[0].DisplayName != "Telegram (My Channel)" {
			t.Errorf("display name = %s", channels[0].DisplayName)
		}
	})

	t.Run("video filter drops text-only channels", func(t *testing.T) {
		repo := &stubChannelSettingsRepo{}
		seed(t, repo, "telegram", `{"enabled":true,"botToken":"abc","chatId":"42"}`)
		seed(t, repo, "youtube", `{"enabled":true,"accessToken":"tok"}`)
		s := NewChannelService(repo, testSecretKey)

		channels, err := s.GetEnabledVideoChannels(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		for _, ch := range channels {
			if ch.ID == "telegram" {
				t.Error("telegram listed as a video channel")
			}
		}
		found := false
		for _, ch := range channels {
			if ch.ID == "youtube" {
				found = true
			}
		}
		if !found {
			t.Error("youtube missing from video channels")
		}
	})

	t.Run("one unreadable channel never hides the rest", func(t *testing.T) {
		repo := &stubChannelSettingsRepo{}
		seed(t, repo, "telegram", `{"enabled":true,"botToken":"abc","chatId":"42"}`)
		seed(t, repo, "discord", `{"enabled":true,"webhookUrl":"https://discord.test/hook"}`)
		repo.failOn = map[string]error{"discord": errors.New("row corrupt")}
		s := NewChannelService(repo, testSecretKey)

		channels, err := s.GetEnabledChannels(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if len(channels) != 1 {
			t.Fatalf("got %d channels, want 1: %+v", len(channels), channels)
		}
		if channels[0].ID != "telegram" {
			t.Errorf("channel = %s, want telegram", channels[0].ID)
		}
	})

	t.Run("broadcast-only channels never listed", func(t *testing.T) {
		repo := &stubChannelSettingsRepo{}
		seed(t, repo, "whatsapp", `{"enabled":true}`)
		seed(t, repo, "email", `{"enabled":true,"senderPrefix":"news"}`)
		s := NewChannelService(repo, testSecretKey)

		channels, err := s.GetEnabledChannels(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if len(channels) != 0 {
			t.Errorf("got %+v, want none", channels)
		}
	})
}
