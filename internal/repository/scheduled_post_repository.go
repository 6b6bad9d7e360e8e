package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// UpdatePending, MarkPublished, MarkFailed and RemovePending touch pending
// entries only; the status guard lives in each statement's WHERE clause, so
// a call against a terminal entry is a silent no-op.
type ScheduledPostRepository interface {
	Create(ctx context.Context, sp *models.ScheduledPost) error
	GetByID(ctx context.Context, scheduleID string) (*models.ScheduledPost, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	UpdatePending(ctx context.Context, sp *models.ScheduledPost) error
	MarkPublished(ctx context.Context, scheduleID string, at time.Time) error
	MarkFailed(ctx context.Context, scheduleID string, at time.Time, errMsg string) error
	RemovePending(ctx context.Context, tenantID, scheduleID string) error
	IsOccupied(ctx context.Context, tenantID string, at time.Time) (bool, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const scheduledColumns = `schedule_id, tenant_id, scheduled_at, post, status, created_at, published_at, failed_at, error`

func scanScheduled(row interface{ Scan(...any) error }) (*models.ScheduledPost, error) {
	var sp models.ScheduledPost
	var payload []byte
	var errMsg sql.NullString
	err := row.Scan(&sp.ScheduleID, &sp.TenantID, &sp.ScheduledAt, &payload, &sp.Status,
		&sp.CreatedAt, &sp.PublishedAt, &sp.FailedAt, &errMsg)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &sp.Post); err != nil {
		return nil, err
	}
	sp.Error = errMsg.String
	return &sp, nil
}

func (r *scheduledPostRepository) Create(ctx context.Context, sp *models.ScheduledPost) error {
	payload, err := json.Marshal(sp.Post)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduled_posts (schedule_id, tenant_id, scheduled_at, post, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, query, sp.ScheduleID, sp.TenantID, sp.ScheduledAt, payload,
		models.ScheduleStatusPending, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, scheduleID string) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_posts WHERE schedule_id = $1`
	sp, err := scanScheduled(r.db.QueryRowContext(ctx, query, scheduleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sp, nil
}

func (r *scheduledPostRepository) list(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		sp, err := scanScheduled(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, sp)
	}
	return posts, rows.Err()
}

func (r *scheduledPostRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_posts WHERE tenant_id = $1 ORDER BY scheduled_at ASC`
	return r.list(ctx, query, tenantID)
}

func (r *scheduledPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_posts WHERE status = $1 AND scheduled_at <= $2 ORDER BY scheduled_at ASC`
	return r.list(ctx, query, models.ScheduleStatusPending, now)
}

// UpdatePending replaces the payload and target instant of a still-pending
// entry. Terminal entries are left untouched.
func (r *scheduledPostRepository) UpdatePending(ctx context.Context, sp *models.ScheduledPost) error {
	payload, err := json.Marshal(sp.Post)
	if err != nil {
		return err
	}

	query := `
		UPDATE scheduled_posts
		SET scheduled_at = $1, post = $2
		WHERE schedule_id = $3 AND tenant_id = $4 AND status = $5
	`
	_, err = r.db.ExecContext(ctx, query, sp.ScheduledAt, payload, sp.ScheduleID, sp.TenantID,
		models.ScheduleStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) MarkPublished(ctx context.Context, scheduleID string, at time.Time) error {
	query := `UPDATE scheduled_posts SET status = $1, published_at = $2 WHERE schedule_id = $3 AND status = $4`
	_, err := r.db.ExecContext(ctx, query, models.ScheduleStatusPublished, at, scheduleID,
		models.ScheduleStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) MarkFailed(ctx context.Context, scheduleID string, at time.Time, errMsg string) error {
	query := `UPDATE scheduled_posts SET status = $1, failed_at = $2, error = $3 WHERE schedule_id = $4 AND status = $5`
	_, err := r.db.ExecContext(ctx, query, models.ScheduleStatusFailed, at, errMsg, scheduleID,
		models.ScheduleStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RemovePending cancels a scheduled post. Deleting a published or failed
// entry is a no-op, which makes cancellation idempotent.
func (r *scheduledPostRepository) RemovePending(ctx context.Context, tenantID, scheduleID string) error {
	query := `DELETE FROM scheduled_posts WHERE schedule_id = $1 AND tenant_id = $2 AND status = $3`
	_, err := r.db.ExecContext(ctx, query, scheduleID, tenantID, models.ScheduleStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// IsOccupied reports whether any scheduled post already claims the instant,
// compared at second precision.
func (r *scheduledPostRepository) IsOccupied(ctx context.Context, tenantID string, at time.Time) (bool, error) {
	query := `SELECT 1 FROM scheduled_posts WHERE tenant_id = $1 AND date_trunc('second', scheduled_at) = date_trunc('second', $2::timestamptz)`

	var result int
	err := r.db.QueryRowContext(ctx, query, tenantID, at).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}
