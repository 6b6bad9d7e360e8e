package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

type SlotRepository interface {
	GetByTenantID(ctx context.Context, tenantID string) (*models.PostingSlotsData, bool, error)
	Replace(ctx context.Context, data *models.PostingSlotsData) error
}

type slotRepository struct {
	db *sql.DB
}

func NewSlotRepository(db *sql.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) GetByTenantID(ctx context.Context, tenantID string) (*models.PostingSlotsData, bool, error) {
	query := `SELECT tenant_id, slots, timezone, created_at, updated_at FROM posting_slots WHERE tenant_id = $1`
	row := r.db.QueryRowContext(ctx, query, tenantID)

	var data models.PostingSlotsData
	var slots []byte
	err := row.Scan(&data.TenantID, &slots, &data.Timezone, &data.CreatedAt, &data.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}

	if err := json.Unmarshal(slots, &data.Slots); err != nil {
		slog.Info(err.Error())
		return nil, false, err
	}
	return &data, true, nil
}

// Replace swaps the whole slot table for a tenant in one write. Concurrent
// replaces race last-write-wins; there is no merge.
func (r *slotRepository) Replace(ctx context.Context, data *models.PostingSlotsData) error {
	slots, err := json.Marshal(data.Slots)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posting_slots (tenant_id, slots, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (tenant_id)
		DO UPDATE SET slots = EXCLUDED.slots, timezone = EXCLUDED.timezone, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, data.TenantID, slots, data.Timezone, time.Now()); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
