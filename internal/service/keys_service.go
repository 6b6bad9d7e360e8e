package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/repository"
	"github.com/creatorhub/crosspost-api/pkg/utils"
)

var ErrInvalidAPIKey = errors.New("invalid api key")

const apiKeyLength = 32

// KeysService issues tenant API keys for server-to-server posting. Only
// the SHA-256 hash is stored; the plaintext key is returned exactly once.
type KeysService interface {
	Create(ctx context.Context, tenantID, name string) (*models.APIKey, string, error)
	List(ctx context.Context, tenantID string) ([]*models.APIKey, error)
	Remove(ctx context.Context, tenantID string, id int64) error
	ResolveTenant(ctx context.Context, key string) (string, error)
}

type keysService struct {
	kr repository.ApiKeyRepository
}

func NewKeysService(kr repository.ApiKeyRepository) KeysService {
	return &keysService{kr: kr}
}

func (s *keysService) Create(ctx context.Context, tenantID, name string) (*models.APIKey, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}

	plaintext, err := utils.GenerateRandomKey(apiKeyLength)
	if err != nil {
		return nil, "", err
	}

	key := &models.APIKey{
		TenantID: tenantID,
		Name:     name,
		KeyHash:  utils.HashKey(plaintext),
	}
	id, err := s.kr.Create(ctx, key)
	if err != nil {
		return nil, "", err
	}
	key.ID = id
	return key, plaintext, nil
}

func (s *keysService) List(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	return s.kr.ListByTenantID(ctx, tenantID)
}

func (s *keysService) Remove(ctx context.Context, tenantID string, id int64) error {
	return s.kr.Remove(ctx, tenantID, id)
}

func (s *keysService) ResolveTenant(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidAPIKey
	}
	tenantID, err := s.kr.GetTenantIDByHash(ctx, utils.HashKey(key))
	if err != nil {
		return "", err
	}
	if tenantID == "" {
		slog.Info("api key lookup missed")
		return "", ErrInvalidAPIKey
	}
	return tenantID, nil
}
