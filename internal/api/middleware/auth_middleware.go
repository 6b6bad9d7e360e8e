package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/creatorhub/crosspost-api/configs"
	"github.com/creatorhub/crosspost-api/internal/service"
	"github.com/creatorhub/crosspost-api/pkg/utils"
)

type AuthMiddleware struct {
	s   service.KeysService
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config, service service.KeysService) *AuthMiddleware {
	return &AuthMiddleware{s: service, cfg: cfg}
}

// AuthMiddleware resolves the tenant for every /api request. Server-to-server
// callers send an API key (X-Api-Key header or api_key query), browser
// sessions send a bearer token.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-Api-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}
		tokenString := bearerToken(c)

		if apiKey == "" && tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key or bearer token",
			})
		}

		if apiKey != "" {
			tenantID, err := m.s.ResolveTenant(c.Context(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			c.Locals("tenant_id", tenantID)
			c.Locals("is_admin", true)
		} else {
			claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
			if err != nil {
				log.Printf("Token validation failed: %v", err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}

			c.Locals("tenant_id", claims.TenantID)
			c.Locals("is_admin", claims.Groups.Contains(m.cfg.AdminGroup))
		}
		return c.Next()
	}
}

// TenantScope pins tenant-scoped routes to the authenticated tenant: the
// :tenantId path segment must match the tenant the key or token resolved to.
func (m *AuthMiddleware) TenantScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, _ := c.Locals("tenant_id").(string)
		if param := c.Params("tenantId"); param != tenantID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Tenant mismatch",
			})
		}
		return c.Next()
	}
}

// RequireAdmin guards mutating routes; read routes stay open to every
// authenticated member of the tenant.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals("is_admin").(bool)
		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin rights required",
			})
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
