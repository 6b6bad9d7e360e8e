package models

import "time"

// Dispatch outcomes. Skipped covers disabled channels, missing credentials
// and filter mismatches; it is not an error.
const (
	DispatchOutcomeSuccess = "success"
	DispatchOutcomeSkipped = "skipped"
	DispatchOutcomeFailed  = "failed"
)

// DispatchResult is the per-channel outcome of one crosspost fan-out.
type DispatchResult struct {
	Channel string `json:"channel"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// DispatchRecord persists a DispatchResult so partial failures stay visible
// after the fan-out returns.
type DispatchRecord struct {
	ID        int64     `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	PostID    string    `db:"post_id" json:"post_id"`
	Channel   string    `db:"channel" json:"channel"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Detail    string    `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
