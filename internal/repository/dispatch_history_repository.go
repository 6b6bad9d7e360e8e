package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

type DispatchHistoryRepository interface {
	Create(ctx context.Context, rec *models.DispatchRecord) (int64, error)
	ListByPostID(ctx context.Context, tenantID, postID string) ([]*models.DispatchRecord, error)
}

type dispatchHistoryRepository struct {
	db *sql.DB
}

func NewDispatchHistoryRepository(db *sql.DB) DispatchHistoryRepository {
	return &dispatchHistoryRepository{db: db}
}

func (r *dispatchHistoryRepository) Create(ctx context.Context, rec *models.DispatchRecord) (int64, error) {
	query := `
		INSERT INTO dispatch_history (tenant_id, post_id, channel, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, rec.TenantID, rec.PostID, rec.Channel, rec.Outcome,
		rec.Detail, time.Now()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *dispatchHistoryRepository) ListByPostID(ctx context.Context, tenantID, postID string) ([]*models.DispatchRecord, error) {
	query := `
		SELECT id, tenant_id, post_id, channel, outcome, detail, created_at
		FROM dispatch_history WHERE tenant_id = $1 AND post_id = $2 ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []*models.DispatchRecord
	for rows.Next() {
		var rec models.DispatchRecord
		err := rows.Scan(&rec.ID, &rec.TenantID, &rec.PostID, &rec.Channel, &rec.Outcome,
			&rec.Detail, &rec.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
