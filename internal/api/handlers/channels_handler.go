package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/creatorhub/crosspost-api/internal/dispatch"
	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/service"
)

type ChannelsHandler struct {
	s          service.ChannelService
	dispatcher *dispatch.Dispatcher
}

func NewChannelsHandler(service service.ChannelService, dispatcher *dispatch.Dispatcher) *ChannelsHandler {
	return &ChannelsHandler{s: service, dispatcher: dispatcher}
}

func (h *ChannelsHandler) GetSettings(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	channelID := c.Params("channel")

	settings, err := h.s.GetSettings(c.Context(), tenantID, channelID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(settings)
}

func (h *ChannelsHandler) UpdateSettings(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	channelID := c.Params("channel")

	settings, err := h.s.UpdateSettings(c.Context(), tenantID, channelID, c.Body())
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(settings)
}

// GetEnabled lists the channels a post modal can offer. With ?video=true
// only channels that accept video posts are returned.
func (h *ChannelsHandler) GetEnabled(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var (
		channels []models.EnabledChannel
		err      error
	)
	if c.QueryBool("video", false) {
		channels, err = h.s.GetEnabledVideoChannels(c.Context(), tenantID)
	} else {
		channels, err = h.s.GetEnabledChannels(c.Context(), tenantID)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list channels",
		})
	}

	return c.Status(fiber.StatusOK).JSON(channels)
}

// TestSend pushes a short text post through one channel so a creator can
// verify freshly saved credentials without publishing anything real.
func (h *ChannelsHandler) TestSend(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	channelID := c.Params("channel")

	post := &models.NewsfeedPost{
		PostID:      "test-" + time.Now().UTC().Format("20060102150405"),
		Title:       "Test post",
		Description: "If you can read this, the channel connection works.",
		Status:      models.PostStatusPublished,
	}

	if err := h.dispatcher.Send(c.Context(), tenantID, channelID, post); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Test post sent",
	})
}
