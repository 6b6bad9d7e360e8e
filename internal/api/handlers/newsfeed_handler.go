package handlers

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/creatorhub/crosspost-api/internal/repository"
	"github.com/creatorhub/crosspost-api/internal/service"
	"github.com/creatorhub/crosspost-api/internal/transfer"
)

type NewsfeedHandler struct {
	s       service.NewsfeedService
	history repository.DispatchHistoryRepository
}

func NewNewsfeedHandler(service service.NewsfeedService, history repository.DispatchHistoryRepository) *NewsfeedHandler {
	return &NewsfeedHandler{s: service, history: history}
}

func (h *NewsfeedHandler) CreatePost(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.PostCreation
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, results, err := h.s.CreatePost(c.Context(), tenantID, &req, req.Channels)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post":     post,
		"dispatch": results,
	})
}

func (h *NewsfeedHandler) UpdatePost(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	postID := c.Params("id")

	var req transfer.PostCreation
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, results, err := h.s.UpdatePost(c.Context(), tenantID, postID, &req, req.Channels)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post":     post,
		"dispatch": results,
	})
}

func (h *NewsfeedHandler) GetPost(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	postID := c.Params("id")

	post, err := h.s.GetPost(c.Context(), tenantID, postID)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *NewsfeedHandler) ListPosts(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	posts, err := h.s.ListPosts(c.Context(), tenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

// ListPublished serves the public newsfeed for one tenant. No auth: the
// tenant id comes from the path, drafts are never included.
func (h *NewsfeedHandler) ListPublished(c *fiber.Ctx) error {
	tenantID := c.Params("tenantId")

	posts, err := h.s.ListPublished(c.Context(), tenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *NewsfeedHandler) RemovePost(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	postID := c.Params("id")

	err := h.s.DeletePost(c.Context(), tenantID, postID)
	if err != nil {
		return postError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *NewsfeedHandler) DispatchHistory(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	postID := c.Params("id")

	records, err := h.history.ListByPostID(c.Context(), tenantID, postID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list dispatch history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(records)
}

func (h *NewsfeedHandler) UploadMedia(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}

	res, err := h.s.UploadMedia(c.Context(), tenantID, fileHeader.Filename, data)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *NewsfeedHandler) CreateUploadURL(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.UploadURLRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	res, err := h.s.CreateUploadURL(c.Context(), tenantID, &req)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func postError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidPost),
		errors.Is(err, service.ErrTooManyTags),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidMedia):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
