package service

import (
	"context"
	"testing"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

type stubSlotRepo struct {
	data     *models.PostingSlotsData
	replaced *models.PostingSlotsData
}

func (r *stubSlotRepo) GetByTenantID(ctx context.Context, tenantID string) (*models.PostingSlotsData, bool, error) {
	if r.data == nil {
		return nil, false, nil
	}
	return r.data, true, nil
}

func (r *stubSlotRepo) Replace(ctx context.Context, data *models.PostingSlotsData) error {
	r.replaced = data
	r.data = data
	return nil
}

type stubScheduledRepo struct {
	occupied map[time.Time]bool
	entries  map[string]*models.ScheduledPost
	created  []*models.ScheduledPost
	updated  []*models.ScheduledPost
	removed  []string
	failed   []string
}

func (r *stubScheduledRepo) Create(ctx context.Context, sp *models.ScheduledPost) error {
	r.created = append(r.created, sp)
	if r.entries == nil {
		r.entries = map[string]*models.ScheduledPost{}
	}
	r.entries[sp.ScheduleID] = sp
	return nil
}

func (r *stubScheduledRepo) GetByID(ctx context.Context, scheduleID string) (*models.ScheduledPost, error) {
	return r.entries[scheduleID], nil
}

func (r *stubScheduledRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, sp := range r.entries {
		if sp.TenantID == tenantID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (r *stubScheduledRepo) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, sp := range r.entries {
		if sp.Status == models.ScheduleStatusPending && !sp.ScheduledAt.After(now) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (r *stubScheduledRepo) UpdatePending(ctx context.Context, sp *models.ScheduledPost) error {
	r.updated = append(r.updated, sp)
	r.entries[sp.ScheduleID] = sp
	return nil
}

func (r *stubScheduledRepo) MarkPublished(ctx context.Context, scheduleID string, at time.Time) error {
	if sp, ok := r.entries[scheduleID]; ok {
		sp.Status = models.ScheduleStatusPublished
	}
	return nil
}

func (r *stubScheduledRepo) MarkFailed(ctx context.Context, scheduleID string, at time.Time, errMsg string) error {
	r.failed = append(r.failed, scheduleID)
	if sp, ok := r.entries[scheduleID]; ok {
		sp.Status = models.ScheduleStatusFailed
	}
	return nil
}

func (r *stubScheduledRepo) RemovePending(ctx context.Context, tenantID, scheduleID string) error {
	r.removed = append(r.removed, scheduleID)
	delete(r.entries, scheduleID)
	return nil
}

func (r *stubScheduledRepo) IsOccupied(ctx context.Context, tenantID string, at time.Time) (bool, error) {
	return r.occupied[at.UTC()], nil
}

func berlinTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestGetNextSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("no slots configured", func(t *testing.T) {
		s := &slotService{sr: &stubSlotRepo{}, sp: &stubScheduledRepo{}, now: time.Now}

		next, err := s.GetNextSlot(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if next != nil {
			t.Errorf("expected nil, got %+v", next)
		}
	})

	t.Run("all slots disabled", func(t *testing.T) {
		sr := &stubSlotRepo{data: &models.PostingSlotsData{
			TenantID: "t1",
			Timezone: "Europe/Berlin",
			Slots:    []models.PostingSlot{{ID: "a", Day: 1, Time: "12:00", Enabled: false}},
		}}
		s := &slotService{sr: sr, sp: &stubScheduledRepo{}, now: time.Now}

		next, err := s.GetNextSlot(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if next != nil {
			t.Errorf("expected nil, got %+v", next)
		}
	})

	t.Run("picks earliest enabled occurrence", func(t *testing.T) {
		// Tuesday 2026-01-06 09:00 Berlin. Enabled slots: Monday 12:00
		// and Friday 18:00. Friday comes first.
		now := berlinTime(t, 2026, time.January, 6, 9, 0)
		sr := &stubSlotRepo{data: &models.PostingSlotsData{
			TenantID: "t1",
			Timezone: "Europe/Berlin",
			Slots: []models.PostingSlot{
				{ID: "mon", Day: 1, Time: "12:00", Enabled: true},
				{ID: "fri", Day: 5, Time: "18:00", Enabled: true},
			},
		}}
		s := &slotService{sr: sr, sp: &stubScheduledRepo{}, now: func() time.Time { return now }}

		next, err := s.GetNextSlot(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if next == nil {
			t.Fatal("expected a slot")
		}
		if next.SlotID != "fri" {
			t.Errorf("slot id = %s, want fri", next.SlotID)
		}
		want := berlinTime(t, 2026, time.January, 9, 18, 0).UTC().Format(time.RFC3339)
		if next.Datetime != want {
			t.Errorf("datetime = %s, want %s", next.Datetime, want)
		}
		if next.DayName != "Friday" {
			t.Errorf("day name = %s, want Friday", next.DayName)
		}
	})

	t.Run("same-day slot already passed rolls to next week", func(t *testing.T) {
		// Tuesday 10:00, slot Tuesday 09:00: next occurrence is a week out.
		now := berlinTime(t, 2026, time.January, 6, 10, 0)
		sr := &stubSlotRepo{data: &models.PostingSlotsData{
			TenantID: "t1",
			Timezone: "Europe/Berlin",
			Slots:    []models.PostingSlot{{ID: "tue", Day: 2, Time: "09:00", Enabled: true}},
		}}
		s := &slotService{sr: sr, sp: &stubScheduledRepo{}, now: func() time.Time { return now }}

		next, err := s.GetNextSlot(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if next == nil {
			t.Fatal("expected a slot")
		}
		want := berlinTime(t, 2026, time.January, 13, 9, 0).UTC().Format(time.RFC3339)
		if next.Datetime != want {
			t.Errorf("datetime = %s, want %s", next.Datetime, want)
		}
	})

	t.Run("skips occupied occurrences", func(t *testing.T) {
		now := berlinTime(t, 2026, time.January, 6, 9, 0)
		first := berlinTime(t, 2026, time.January, 9, 18, 0)
		sr := &stubSlotRepo{data: &models.PostingSlotsData{
			TenantID: "t1",
			Timezone: "Europe/Berlin",
			Slots:    []models.PostingSlot{{ID: "fri", Day: 5, Time: "18:00", Enabled: true}},
		}}
		sp := &stubScheduledRepo{occupied: map[time.Time]bool{first.UTC(): true}}
		s := &slotService{sr: sr, sp: sp, now: func() time.Time { return now }}

		next, err := s.GetNextSlot(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if next == nil {
			t.Fatal("expected a slot")
		}
		want := berlinTime(t, 2026, time.January, 16, 18, 0).UTC().Format(time.RFC3339)
		if next.Datetime != want {
			t.Errorf("datetime = %s, want %s", next.Datetime, want)
		}
	})

	t.Run("result is strictly in the future", func(t *testing.T) {
		// Exactly at the slot instant: candidate is not after now, so it
		// rolls forward a week.
		now := berlinTime(t, 2026, time.January, 9, 18, 0)
		sr := &stubSlotRepo{data: &models.PostingSlotsData{
			TenantID: "t1",
			Timezone: "Europe/Berlin",
			Slots:    []models.PostingSlot{{ID: "fri", Day: 5, Time: "18:00", Enabled: true}},
		}}
		s := &slotService{sr: sr, sp: &stubScheduledRepo{}, now: func() time.Time { return now }}

		next, err := s.GetNextSlot(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if next == nil {
			t.Fatal("expected a slot")
		}
		at, err := time.Parse(time.RFC3339, next.Datetime)
		if err != nil {
			t.Fatal(err)
		}
		if !at.After(now) {
			t.Errorf("resolved instant %s is not after now %s", at, now)
		}
	})
}

func TestUpdateSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects bad day", func(t *testing.T) {
		s := NewSlotService(&stubSlotRepo{}, &stubScheduledRepo{})
		_, err := s.UpdateSlots(ctx, "t1", []models.PostingSlot{{Day: 7, Time: "12:00"}}, "")
		if err == nil {
			t.Error("expected error for day 7")
		}
	})

	t.Run("rejects bad time", func(t *testing.T) {
		s := NewSlotService(&stubSlotRepo{}, &stubScheduledRepo{})
		_, err := s.UpdateSlots(ctx, "t1", []models.PostingSlot{{Day: 1, Time: "25:00"}}, "")
		if err == nil {
			t.Error("expected error for 25:00")
		}
	})

	t.Run("rejects bad timezone", func(t *testing.T) {
		s := NewSlotService(&stubSlotRepo{}, &stubScheduledRepo{})
		_, err := s.UpdateSlots(ctx, "t1", nil, "Mars/Olympus")
		if err == nil {
			t.Error("expected error for unknown timezone")
		}
	})

	t.Run("assigns ids and persists", func(t *testing.T) {
		sr := &stubSlotRepo{}
		s := NewSlotService(sr, &stubScheduledRepo{})

		data, err := s.UpdateSlots(ctx, "t1", []models.PostingSlot{
			{Day: 1, Time: "12:00", Enabled: true},
			{ID: "keep", Day: 5, Time: "18:00", Enabled: true},
		}, "Europe/Berlin")
		if err != nil {
			t.Fatal(err)
		}
		if sr.replaced == nil {
			t.Fatal("Replace was not called")
		}
		if data.Slots[0].ID == "" {
			t.Error("first slot got no id")
		}
		if data.Slots[1].ID != "keep" {
			t.Errorf("existing id overwritten: %s", data.Slots[1].ID)
		}
	})

	t.Run("defaults timezone when missing", func(t *testing.T) {
		sr := &stubSlotRepo{}
		s := NewSlotService(sr, &stubScheduledRepo{})

		data, err := s.UpdateSlots(ctx, "t1", nil, "")
		if err != nil {
			t.Fatal(err)
		}
		if data.Timezone != models.DefaultTimezone {
			t.Errorf("timezone = %s, want %s", data.Timezone, models.DefaultTimezone)
		}
	})
}
