package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/creatorhub/crosspost-api/internal/service"
	"github.com/creatorhub/crosspost-api/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

func (h *ScheduleHandler) CreateSchedule(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	entry, err := h.s.Schedule(c.Context(), tenantID, &req)
	if err != nil {
		return scheduleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(entry)
}

func (h *ScheduleHandler) ListSchedules(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	entries, err := h.s.List(c.Context(), tenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list scheduled posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(entries)
}

func (h *ScheduleHandler) GetSchedule(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	scheduleID := c.Params("id")

	entry, err := h.s.Get(c.Context(), tenantID, scheduleID)
	if err != nil {
		return scheduleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(entry)
}

func (h *ScheduleHandler) UpdateSchedule(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	scheduleID := c.Params("id")

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	entry, err := h.s.Update(c.Context(), tenantID, scheduleID, &req)
	if err != nil {
		return scheduleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(entry)
}

func (h *ScheduleHandler) CancelSchedule(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	scheduleID := c.Params("id")

	err := h.s.Cancel(c.Context(), tenantID, scheduleID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to cancel scheduled post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func scheduleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidSchedule),
		errors.Is(err, service.ErrNoSlotAvailable),
		errors.Is(err, service.ErrInvalidPost),
		errors.Is(err, service.ErrTooManyTags):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
