package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// How far ahead the resolver scans when slots are occupied by already
// scheduled posts. With an empty schedule the first week always resolves.
const maxWeeksToScan = 8

type SlotService interface {
	GetSlots(ctx context.Context, tenantID string) (*models.PostingSlotsData, error)
	UpdateSlots(ctx context.Context, tenantID string, slots []models.PostingSlot, timezone string) (*models.PostingSlotsData, error)
	GetNextSlot(ctx context.Context, tenantID string) (*models.NextSlotInfo, error)
}

type slotService struct {
	sr  repository.SlotRepository
	sp  repository.ScheduledPostRepository
	now func() time.Time
}

func NewSlotService(sr repository.SlotRepository, sp repository.ScheduledPostRepository) SlotService {
	return &slotService{sr: sr, sp: sp, now: time.Now}
}

func (s *slotService) GetSlots(ctx context.Context, tenantID string) (*models.PostingSlotsData, error) {
	data, found, err := s.sr.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.PostingSlotsData{
			TenantID: tenantID,
			Slots:    []models.PostingSlot{},
			Timezone: models.DefaultTimezone,
		}, nil
	}
	return data, nil
}

func (s *slotService) UpdateSlots(ctx context.Context, tenantID string, slots []models.PostingSlot, timezone string) (*models.PostingSlotsData, error) {
	if timezone == "" {
		timezone = models.DefaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		err = fmt.Errorf("invalid timezone %q: %w", timezone, err)
		slog.Info(err.Error())
		return nil, err
	}

	for i := range slots {
		if slots[i].Day < 0 || slots[i].Day > 6 {
			err := fmt.Errorf("slot day out of range: %d", slots[i].Day)
			slog.Info(err.Error())
			return nil, err
		}
		if _, err := time.Parse("15:04", slots[i].Time); err != nil {
			err = fmt.Errorf("invalid slot time %q: %w", slots[i].Time, err)
			slog.Info(err.Error())
			return nil, err
		}
		if slots[i].ID == "" {
			id, err := gonanoid.New()
			if err != nil {
				return nil, err
			}
			slots[i].ID = id
		}
	}

	data := &models.PostingSlotsData{
		TenantID: tenantID,
		Slots:    slots,
		Timezone: timezone,
	}
	if err := s.sr.Replace(ctx, data); err != nil {
		return nil, err
	}
	return s.GetSlots(ctx, tenantID)
}

// GetNextSlot resolves the earliest free future occurrence of any enabled
// slot, interpreted in the tenant's timezone. A nil result means no slot is
// available; callers fall back to manual scheduling.
func (s *slotService) GetNextSlot(ctx context.Context, tenantID string) (*models.NextSlotInfo, error) {
	data, found, err := s.sr.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !found || len(data.Slots) == 0 {
		return nil, nil
	}

	var enabled []models.PostingSlot
	for _, slot := range data.Slots {
		if slot.Enabled {
			enabled = append(enabled, slot)
		}
	}
	if len(enabled) == 0 {
		return nil, nil
	}

	loc, err := time.LoadLocation(data.Timezone)
	if err != nil {
		slog.Info(err.Error())
		loc, _ = time.LoadLocation(models.DefaultTimezone)
	}

	now := s.now()

	for week := 0; week < maxWeeksToScan; week++ {
		type occurrence struct {
			slot models.PostingSlot
			at   time.Time
		}

		var occurrences []occurrence
		for _, slot := range enabled {
			at, err := nextOccurrence(slot, loc, now, week)
			if err != nil {
				slog.Info(err.Error())
				continue
			}
			occurrences = append(occurrences, occurrence{slot: slot, at: at})
		}
		sort.Slice(occurrences, func(i, j int) bool { return occurrences[i].at.Before(occurrences[j].at) })

		for _, occ := range occurrences {
			occupied, err := s.sp.IsOccupied(ctx, tenantID, occ.at)
			if err != nil {
				return nil, err
			}
			if occupied {
				continue
			}
			return &models.NextSlotInfo{
				SlotID:   occ.slot.ID,
				Datetime: occ.at.UTC().Format(time.RFC3339),
				DayName:  occ.at.In(loc).Weekday().String(),
				Date:     occ.at.In(loc).Format("02 January 2006"),
				Time:     occ.slot.Time,
				Label:    occ.slot.Label,
			}, nil
		}
	}

	return nil, nil
}

// nextOccurrence computes the first instant strictly after now matching the
// slot's weekday and wall-clock time in loc, then shifts it by whole weeks.
func nextOccurrence(slot models.PostingSlot, loc *time.Location, now time.Time, weekOffset int) (time.Time, error) {
	t, err := time.Parse("15:04", slot.Time)
	if err != nil {
		return time.Time{}, errors.New("invalid slot time: " + slot.Time)
	}

	nowLocal := now.In(loc)
	daysUntil := (slot.Day - int(nowLocal.Weekday()) + 7) % 7

	candidate := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day()+daysUntil,
		t.Hour(), t.Minute(), 0, 0, loc)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	if weekOffset > 0 {
		candidate = candidate.AddDate(0, 0, 7*weekOffset)
	}
	return candidate, nil
}
