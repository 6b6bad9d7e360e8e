package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

type NewsfeedRepository interface {
	GetByID(ctx context.Context, tenantID, postID string) (*models.NewsfeedPost, error)
	Create(ctx context.Context, post *models.NewsfeedPost) error
	Update(ctx context.Context, post *models.NewsfeedPost) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error)
	ListPublished(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error)
	Remove(ctx context.Context, tenantID, postID string) error
}

type newsfeedRepository struct {
	db *sql.DB
}

func NewNewsfeedRepository(db *sql.DB) NewsfeedRepository {
	return &newsfeedRepository{db: db}
}

const postColumns = `post_id, tenant_id, title, description, image_key, image_keys, video_key,
	external_link, location, location_url, status, scheduled_at, is_short, tags, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.NewsfeedPost, error) {
	var post models.NewsfeedPost
	var imageKeys, tags []byte
	var scheduledAt sql.NullString
	err := row.Scan(&post.PostID, &post.TenantID, &post.Title, &post.Description,
		&post.ImageKey, &imageKeys, &post.VideoKey, &post.ExternalLink,
		&post.Location, &post.LocationURL, &post.Status, &scheduledAt,
		&post.IsShort, &tags, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(imageKeys) > 0 {
		if err := json.Unmarshal(imageKeys, &post.ImageKeys); err != nil {
			return nil, err
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &post.Tags); err != nil {
			return nil, err
		}
	}
	post.ScheduledAt = scheduledAt.String
	return &post, nil
}

func (r *newsfeedRepository) GetByID(ctx context.Context, tenantID, postID string) (*models.NewsfeedPost, error) {
	query := `SELECT ` + postColumns + ` FROM newsfeed_posts WHERE tenant_id = $1 AND post_id = $2`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, tenantID, postID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *newsfeedRepository) Create(ctx context.Context, post *models.NewsfeedPost) error {
	imageKeys, err := json.Marshal(post.ImageKeys)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO newsfeed_posts (post_id, tenant_id, title, description, image_key, image_keys,
			video_key, external_link, location, location_url, status, scheduled_at, is_short, tags,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15, $16)
	`
	now := time.Now()
	_, err = r.db.ExecContext(ctx, query, post.PostID, post.TenantID, post.Title, post.Description,
		post.ImageKey, imageKeys, post.VideoKey, post.ExternalLink, post.Location, post.LocationURL,
		post.Status, post.ScheduledAt, post.IsShort, tags, now, now)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *newsfeedRepository) Update(ctx context.Context, post *models.NewsfeedPost) error {
	imageKeys, err := json.Marshal(post.ImageKeys)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE newsfeed_posts
		SET title = $1, description = $2, image_key = $3, image_keys = $4, video_key = $5,
			external_link = $6, location = $7, location_url = $8, status = $9,
			scheduled_at = NULLIF($10, ''), is_short = $11, tags = $12, updated_at = $13
		WHERE tenant_id = $14 AND post_id = $15
	`
	_, err = r.db.ExecContext(ctx, query, post.Title, post.Description, post.ImageKey, imageKeys,
		post.VideoKey, post.ExternalLink, post.Location, post.LocationURL, post.Status,
		post.ScheduledAt, post.IsShort, tags, time.Now(), post.TenantID, post.PostID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *newsfeedRepository) list(ctx context.Context, query string, args ...any) ([]*models.NewsfeedPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.NewsfeedPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *newsfeedRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error) {
	query := `SELECT ` + postColumns + ` FROM newsfeed_posts WHERE tenant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, tenantID)
}

func (r *newsfeedRepository) ListPublished(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error) {
	query := `SELECT ` + postColumns + ` FROM newsfeed_posts WHERE tenant_id = $1 AND status = $2 ORDER BY created_at DESC`
	return r.list(ctx, query, tenantID, models.PostStatusPublished)
}

func (r *newsfeedRepository) Remove(ctx context.Context, tenantID, postID string) error {
	query := `DELETE FROM newsfeed_posts WHERE tenant_id = $1 AND post_id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, postID); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
