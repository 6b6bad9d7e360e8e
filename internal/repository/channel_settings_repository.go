package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// ChannelSettingsRepository stores one opaque settings blob per
// (tenant, channel). The blob is AES-GCM sealed by the service layer before
// it gets here, so the repository never sees credentials in the clear.
type ChannelSettingsRepository interface {
	Get(ctx context.Context, tenantID, channelID string) (string, bool, error)
	Put(ctx context.Context, tenantID, channelID, sealed string) error
}

type channelSettingsRepository struct {
	db *sql.DB
}

func NewChannelSettingsRepository(db *sql.DB) ChannelSettingsRepository {
	return &channelSettingsRepository{db: db}
}

func (r *channelSettingsRepository) Get(ctx context.Context, tenantID, channelID string) (string, bool, error) {
	query := `SELECT settings FROM channel_settings WHERE tenant_id = $1 AND channel_id = $2`
	row := r.db.QueryRowContext(ctx, query, tenantID, channelID)

	var sealed string
	err := row.Scan(&sealed)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		slog.Info(err.Error())
		return "", false, err
	}
	return sealed, true, nil
}

func (r *channelSettingsRepository) Put(ctx context.Context, tenantID, channelID, sealed string) error {
	query := `
		INSERT INTO channel_settings (tenant_id, channel_id, settings, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, channel_id)
		DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, tenantID, channelID, sealed, time.Now()); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
