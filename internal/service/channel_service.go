package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/creatorhub/crosspost-api/internal/dispatch"
	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/repository"
	"github.com/creatorhub/crosspost-api/pkg/utils"
)

// ChannelService manages per-tenant channel settings. Settings are
// stored AES-GCM sealed since they carry tokens and webhook secrets.
type ChannelService interface {
	GetSettings(ctx context.Context, tenantID, channelID string) (json.RawMessage, error)
	UpdateSettings(ctx context.Context, tenantID, channelID string, patch json.RawMessage) (json.RawMessage, error)
	GetEnabledChannels(ctx context.Context, tenantID string) ([]models.EnabledChannel, error)
	GetEnabledVideoChannels(ctx context.Context, tenantID string) ([]models.EnabledChannel, error)

	// Load and Store make the service usable as the dispatcher's
	// settings source.
	Load(ctx context.Context, tenantID, channelID string) (json.RawMessage, error)
	Store(ctx context.Context, tenantID, channelID string, raw json.RawMessage) error
}

type channelService struct {
	cr        repository.ChannelSettingsRepository
	secretKey []byte
}

func NewChannelService(cr repository.ChannelSettingsRepository, secretKey string) ChannelService {
	return &channelService{cr: cr, secretKey: []byte(secretKey)}
}

var defaultSettings = json.RawMessage(`{"enabled":false}`)

// GetSettings returns the unsealed settings document. Missing or
// unreadable settings come back as disabled defaults so one broken blob
// never takes the settings page down.
func (s *channelService) GetSettings(ctx context.Context, tenantID, channelID string) (json.RawMessage, error) {
	if dispatch.Lookup(channelID) == nil {
		return nil, errors.New("unknown channel: " + channelID)
	}

	sealed, found, err := s.cr.Get(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if !found {
		return defaultSettings, nil
	}

	plain, err := utils.Decrypt(sealed, s.secretKey)
	if err != nil {
		slog.Info(err.Error())
		return defaultSettings, nil
	}
	if !json.Valid([]byte(plain)) {
		return defaultSettings, nil
	}
	return json.RawMessage(plain), nil
}

// UpdateSettings merges the patch over the stored document and seals
// the result, so partial updates never wipe stored credentials.
func (s *channelService) UpdateSettings(ctx context.Context, tenantID, channelID string, patch json.RawMessage) (json.RawMessage, error) {
	current, err := s.GetSettings(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}

	var merged map[string]any
	if err := json.Unmarshal(current, &merged); err != nil {
		merged = map[string]any{}
	}
	var changes map[string]any
	if err := json.Unmarshal(patch, &changes); err != nil {
		slog.Error("invalid channel settings payload", "channel", channelID, "error", err)
		return nil, errors.New("invalid settings payload")
	}
	for k, v := range changes {
		merged[k] = v
	}

	updated, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if err := s.Store(ctx, tenantID, channelID, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *channelService) Load(ctx context.Context, tenantID, channelID string) (json.RawMessage, error) {
	return s.GetSettings(ctx, tenantID, channelID)
}

func (s *channelService) Store(ctx context.Context, tenantID, channelID string, raw json.RawMessage) error {
	if dispatch.Lookup(channelID) == nil {
		return errors.New("unknown channel: " + channelID)
	}
	sealed, err := utils.Encrypt([]byte(raw), s.secretKey)
	if err != nil {
		return err
	}
	return s.cr.Put(ctx, tenantID, channelID, sealed)
}

// GetEnabledChannels aggregates the selectable channels a tenant has
// fully configured. A failure on one channel is logged and skipped so
// the aggregate stays useful.
func (s *channelService) GetEnabledChannels(ctx context.Context, tenantID string) ([]models.EnabledChannel, error) {
	return s.enabledChannels(ctx, tenantID, false)
}

// GetEnabledVideoChannels narrows the aggregate to channels that accept
// video posts.
func (s *channelService) GetEnabledVideoChannels(ctx context.Context, tenantID string) ([]models.EnabledChannel, error) {
	return s.enabledChannels(ctx, tenantID, true)
}

func (s *channelService) enabledChannels(ctx context.Context, tenantID string, videoOnly bool) ([]models.EnabledChannel, error) {
	enabled := []models.EnabledChannel{}
	for _, desc := range dispatch.Registry() {
		if !desc.Selectable {
			continue
		}
		if videoOnly && !desc.Video {
			continue
		}

		raw, err := s.GetSettings(ctx, tenantID, desc.ID)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			slog.Info(err.Error())
			continue
		}
		if desc.Eligible != nil && !desc.Eligible(cfg) {
			continue
		}

		displayName := desc.Name
		if desc.DisplayName != nil {
			displayName = desc.DisplayName(cfg)
		}
		enabled = append(enabled, models.EnabledChannel{
			ID:          desc.ID,
			Name:        desc.Name,
			DisplayName: displayName,
		})
	}
	return enabled, nil
}
