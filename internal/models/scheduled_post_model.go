package models

import "time"

// ScheduledPost defers publication of an embedded post payload to a future
// instant. Status moves pending -> published or pending -> failed; both
// terminal states stay put and are never re-dispatched.
type ScheduledPost struct {
	ScheduleID  string       `db:"schedule_id" json:"schedule_id"`
	TenantID    string       `db:"tenant_id" json:"tenant_id"`
	ScheduledAt time.Time    `db:"scheduled_at" json:"scheduled_at"`
	Post        NewsfeedPost `db:"post" json:"post"`
	Status      string       `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	PublishedAt *time.Time   `db:"published_at" json:"published_at,omitempty"`
	FailedAt    *time.Time   `db:"failed_at" json:"failed_at,omitempty"`
	Error       string       `db:"error" json:"error,omitempty"`
}

const (
	ScheduleStatusPending   = "pending"
	ScheduleStatusPublished = "published"
	ScheduleStatusFailed    = "failed"
)
