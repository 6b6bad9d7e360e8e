package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/creatorhub/crosspost-api/internal/service"
)

type KeysHandler struct {
	s service.KeysService
}

func NewKeysHandler(service service.KeysService) *KeysHandler {
	return &KeysHandler{s: service}
}

func (h *KeysHandler) CreateKey(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	name := c.Query("name")

	key, plaintext, err := h.s.Create(c.Context(), tenantID, name)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to create API key",
		})
	}

	// The plaintext key is shown exactly once; only its hash is stored.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":   key.ID,
		"name": key.Name,
		"key":  plaintext,
	})
}

func (h *KeysHandler) ListKeys(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	keys, err := h.s.List(c.Context(), tenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list API keys",
		})
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *KeysHandler) RemoveKey(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	keyID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), tenantID, int64(keyID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to delete API key",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
