package models

import "time"

// PostingSlot is one recurring weekly publishing opportunity.
// Day uses 0=Sunday .. 6=Saturday; Time is a local "HH:MM" wall-clock string
// interpreted in the tenant's timezone.
type PostingSlot struct {
	ID      string `json:"id"`
	Day     int    `json:"day"`
	Time    string `json:"time"`
	Enabled bool   `json:"enabled"`
	Label   string `json:"label,omitempty"`
}

// PostingSlotsData is the per-tenant slot table. The slot list is replaced
// wholesale on update; there is no per-slot versioning.
type PostingSlotsData struct {
	TenantID  string        `db:"tenant_id" json:"tenant_id"`
	Slots     []PostingSlot `db:"slots" json:"slots"`
	Timezone  string        `db:"timezone" json:"timezone"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

const DefaultTimezone = "Europe/Berlin"

// NextSlotInfo is the resolved next free posting opportunity. It is derived,
// never stored.
type NextSlotInfo struct {
	SlotID   string `json:"slot_id"`
	Datetime string `json:"datetime"`
	DayName  string `json:"day_name"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Label    string `json:"label,omitempty"`
}
