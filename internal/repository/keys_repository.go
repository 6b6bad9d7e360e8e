package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

type ApiKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) (int64, error)
	ListByTenantID(ctx context.Context, tenantID string) ([]*models.APIKey, error)
	GetTenantIDByHash(ctx context.Context, keyHash string) (string, error)
	Remove(ctx context.Context, tenantID string, id int64) error
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, key *models.APIKey) (int64, error) {
	query := `
		INSERT INTO api_keys (tenant_id, name, key_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, key.TenantID, key.Name, key.KeyHash, time.Now()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *apiKeyRepository) ListByTenantID(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	query := `SELECT id, tenant_id, name, key_hash, created_at FROM api_keys WHERE tenant_id = $1`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var key models.APIKey
		if err := rows.Scan(&key.ID, &key.TenantID, &key.Name, &key.KeyHash, &key.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

func (r *apiKeyRepository) GetTenantIDByHash(ctx context.Context, keyHash string) (string, error) {
	query := `SELECT tenant_id FROM api_keys WHERE key_hash = $1`

	var tenantID string
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(&tenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		slog.Info(err.Error())
		return "", err
	}
	return tenantID, nil
}

func (r *apiKeyRepository) Remove(ctx context.Context, tenantID string, id int64) error {
	query := `DELETE FROM api_keys WHERE tenant_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, id); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
