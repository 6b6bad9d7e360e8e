package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/repository"
	"github.com/creatorhub/crosspost-api/internal/transfer"
)

var (
	ErrScheduleNotFound = errors.New("scheduled post not found")
	ErrInvalidSchedule  = errors.New("scheduled time must be in the future")
	ErrNoSlotAvailable  = errors.New("no posting slot available")
)

// ScheduleEnqueuer registers a delayed promotion task. The cron sweep
// picks up anything the queue loses, so enqueue failures are not fatal.
type ScheduleEnqueuer interface {
	EnqueueSchedule(scheduleID string, delay time.Duration) error
}

type ScheduleService interface {
	Schedule(ctx context.Context, tenantID string, req *transfer.ScheduleRequest) (*models.ScheduledPost, error)
	Update(ctx context.Context, tenantID, scheduleID string, req *transfer.ScheduleRequest) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, tenantID, scheduleID string) error
	Get(ctx context.Context, tenantID, scheduleID string) (*models.ScheduledPost, error)
	List(ctx context.Context, tenantID string) ([]*models.ScheduledPost, error)

	// Promote publishes a due scheduled post. It is idempotent: both the
	// delayed task and the sweep may call it for the same entry.
	Promote(ctx context.Context, scheduleID string) error
	PromoteDue(ctx context.Context) error
}

type scheduleService struct {
	sp         repository.ScheduledPostRepository
	nr         repository.NewsfeedRepository
	slots      SlotService
	newsfeed   NewsfeedService
	dispatcher PostDispatcher
	enqueuer   ScheduleEnqueuer
	now        func() time.Time
}

func NewScheduleService(
	sp repository.ScheduledPostRepository,
	nr repository.NewsfeedRepository,
	slots SlotService,
	newsfeed NewsfeedService,
	dispatcher PostDispatcher,
	enqueuer ScheduleEnqueuer,
) ScheduleService {
	return &scheduleService{
		sp:         sp,
		nr:         nr,
		slots:      slots,
		newsfeed:   newsfeed,
		dispatcher: dispatcher,
		enqueuer:   enqueuer,
		now:        time.Now,
	}
}

// Schedule stores the post payload with its target instant and arms a
// delayed promotion task. An empty scheduledAt resolves to the tenant's
// next free posting slot.
func (s *scheduleService) Schedule(ctx context.Context, tenantID string, req *transfer.ScheduleRequest) (*models.ScheduledPost, error) {
	if req.Post == nil || strings.TrimSpace(req.Post.Title) == "" || strings.TrimSpace(req.Post.Description) == "" {
		slog.Error("scheduled post missing title or description")
		return nil, ErrInvalidPost
	}
	if len(req.Post.Tags) > models.MaxPostTags {
		return nil, ErrTooManyTags
	}

	at, err := s.resolveInstant(ctx, tenantID, req.ScheduledAt)
	if err != nil {
		return nil, err
	}

	scheduleID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	post := *req.Post
	post.TenantID = tenantID
	if post.PostID == "" {
		postID, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		post.PostID = postID
	}
	post.Status = models.PostStatusScheduled
	post.ScheduledAt = at.UTC().Format(time.RFC3339)

	entry := &models.ScheduledPost{
		ScheduleID:  scheduleID,
		TenantID:    tenantID,
		ScheduledAt: at,
		Post:        post,
		Status:      models.ScheduleStatusPending,
	}
	if err := s.sp.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.arm(entry)
	return entry, nil
}

// Update rewrites a still-pending entry and re-arms the promotion task.
func (s *scheduleService) Update(ctx context.Context, tenantID, scheduleID string, req *transfer.ScheduleRequest) (*models.ScheduledPost, error) {
	entry, err := s.Get(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.ScheduleStatusPending {
		return nil, ErrScheduleNotFound
	}

	if req.ScheduledAt != "" {
		at, err := s.resolveInstant(ctx, tenantID, req.ScheduledAt)
		if err != nil {
			return nil, err
		}
		entry.ScheduledAt = at
	}
	if req.Post != nil {
		if strings.TrimSpace(req.Post.Title) == "" || strings.TrimSpace(req.Post.Description) == "" {
			return nil, ErrInvalidPost
		}
		post := *req.Post
		post.TenantID = tenantID
		post.PostID = entry.Post.PostID
		post.Status = models.PostStatusScheduled
		entry.Post = post
	}
	entry.Post.ScheduledAt = entry.ScheduledAt.UTC().Format(time.RFC3339)

	if err := s.sp.UpdatePending(ctx, entry); err != nil {
		return nil, err
	}

	s.arm(entry)
	return entry, nil
}

// Cancel is idempotent; cancelling an already promoted or failed entry
// is a no-op.
func (s *scheduleService) Cancel(ctx context.Context, tenantID, scheduleID string) error {
	return s.sp.RemovePending(ctx, tenantID, scheduleID)
}

func (s *scheduleService) Get(ctx context.Context, tenantID, scheduleID string) (*models.ScheduledPost, error) {
	entry, err := s.sp.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.TenantID != tenantID {
		return nil, ErrScheduleNotFound
	}
	return entry, nil
}

func (s *scheduleService) List(ctx context.Context, tenantID string) ([]*models.ScheduledPost, error) {
	return s.sp.ListByTenant(ctx, tenantID)
}

func (s *scheduleService) Promote(ctx context.Context, scheduleID string) error {
	entry, err := s.sp.GetByID(ctx, scheduleID)
	if err != nil {
		return err
	}
	// Gone or already in a terminal state: nothing to do. This is what
	// keeps double promotion (task plus sweep) harmless.
	if entry == nil || entry.Status != models.ScheduleStatusPending {
		return nil
	}
	if entry.ScheduledAt.After(s.now()) {
		return nil
	}

	post := entry.Post
	post.Status = models.PostStatusPublished
	s.newsfeed.EnrichMediaURLs(&post)

	if err := s.persistPromoted(ctx, &post); err != nil {
		slog.Error("promoting scheduled post failed", "schedule_id", scheduleID, "error", err)
		if markErr := s.sp.MarkFailed(ctx, scheduleID, s.now(), err.Error()); markErr != nil {
			return markErr
		}
		return err
	}

	// Channel failures are per-channel results, never a promotion
	// failure: the post is live on the newsfeed regardless.
	if results, err := s.dispatcher.Dispatch(ctx, entry.TenantID, &post, nil); err != nil {
		slog.Error("scheduled dispatch failed", "schedule_id", scheduleID, "error", err)
	} else {
		for _, res := range results {
			if res.Outcome == models.DispatchOutcomeFailed {
				slog.Info("scheduled dispatch channel failed", "channel", res.Channel, "detail", res.Detail)
			}
		}
	}

	return s.sp.MarkPublished(ctx, scheduleID, s.now())
}

// PromoteDue is the sweep entrypoint: it promotes everything pending
// whose instant has passed, one at a time so one bad entry cannot block
// the rest.
func (s *scheduleService) PromoteDue(ctx context.Context) error {
	due, err := s.sp.ListDue(ctx, s.now())
	if err != nil {
		return err
	}
	for _, entry := range due {
		if err := s.Promote(ctx, entry.ScheduleID); err != nil {
			slog.Error("sweep promotion failed", "schedule_id", entry.ScheduleID, "error", err)
		}
	}
	return nil
}

// persistPromoted writes the published post to the newsfeed, updating
// in place when a draft row with the same id already exists.
func (s *scheduleService) persistPromoted(ctx context.Context, post *models.NewsfeedPost) error {
	existing, err := s.nr.GetByID(ctx, post.TenantID, post.PostID)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.nr.Update(ctx, post)
	}
	return s.nr.Create(ctx, post)
}

func (s *scheduleService) resolveInstant(ctx context.Context, tenantID, scheduledAt string) (time.Time, error) {
	if scheduledAt == "" {
		slot, err := s.slots.GetNextSlot(ctx, tenantID)
		if err != nil {
			return time.Time{}, err
		}
		if slot == nil {
			return time.Time{}, ErrNoSlotAvailable
		}
		return time.Parse(time.RFC3339, slot.Datetime)
	}

	at, err := time.Parse(time.RFC3339, scheduledAt)
	if err != nil {
		slog.Error("invalid scheduledAt", "value", scheduledAt, "error", err)
		return time.Time{}, errors.New("scheduledAt must be RFC 3339")
	}
	if !at.After(s.now()) {
		return time.Time{}, ErrInvalidSchedule
	}
	return at, nil
}

// arm registers the delayed promotion task. Losing the task is fine,
// the sweep will promote the entry a few minutes late.
func (s *scheduleService) arm(entry *models.ScheduledPost) {
	if s.enqueuer == nil {
		return
	}
	delay := time.Until(entry.ScheduledAt)
	if delay < 0 {
		delay = 0
	}
	if err := s.enqueuer.EnqueueSchedule(entry.ScheduleID, delay); err != nil {
		slog.Info(err.Error())
	}
}
