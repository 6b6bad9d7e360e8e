package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/creatorhub/crosspost-api/internal/service"
	"github.com/creatorhub/crosspost-api/internal/transfer"
)

type SlotsHandler struct {
	s service.SlotService
}

func NewSlotsHandler(service service.SlotService) *SlotsHandler {
	return &SlotsHandler{s: service}
}

func (h *SlotsHandler) GetSlots(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	data, err := h.s.GetSlots(c.Context(), tenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to load posting slots",
		})
	}

	return c.Status(fiber.StatusOK).JSON(data)
}

func (h *SlotsHandler) UpdateSlots(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.SlotsUpdate
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	data, err := h.s.UpdateSlots(c.Context(), tenantID, req.Slots, req.Timezone)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(data)
}

func (h *SlotsHandler) NextSlot(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	next, err := h.s.GetNextSlot(c.Context(), tenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to resolve next slot",
		})
	}
	if next == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"available": false,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"available": true,
		"slot":      next,
	})
}
