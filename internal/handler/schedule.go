package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/avatarforge/api/internal/model"
	"github.com/avatarforge/api/internal/service"
	"github.com/avatarforge/api/internal/store"
	"github.com/avatarforge/api/pkg/response"
)

type ScheduleHandler struct {
	service   *service.ScheduleService
	validator *validator.Validate
}

func NewScheduleHandler(svc *service.ScheduleService, v *validator.Validate) *ScheduleHandler {
	return &ScheduleHandler{
		service:   svc,
		validator: v,
	}
}

// Batch handles POST /api/schedule/batch
func (h *ScheduleHandler) Batch(c *fiber.Ctx) error {
	var req model.ScheduleBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.ScheduleBatch(c.Context(), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Account not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}

// Posts handles GET /api/schedule/posts?accountId=&status=
func (h *ScheduleHandler) Posts(c *fiber.Ctx) error {
	accountID := c.Query("accountId")
	if accountID == "" {
		return response.ValidationError(c, "accountId is required", nil)
	}
	status := model.PostStatus(c.Query("status"))

	posts, err := h.service.ListPosts(c.Context(), accountID, status)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{
		"accountId": accountID,
		"count":     len(posts),
		"posts":     posts,
	})
}

// Cancel handles POST /api/schedule/cancel/:postId
func (h *ScheduleHandler) Cancel(c *fiber.Ctx) error {
	postID := c.Params("postId")
	if postID == "" {
		return response.ValidationError(c, "Post ID is required", nil)
	}

	post, err := h.service.CancelPost(c.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.OK(c, post)
}

// OptimalTimes handles GET /api/schedule/optimal-times/:platform
func (h *ScheduleHandler) OptimalTimes(c *fiber.Ctx) error {
	platform := model.Platform(c.Params("platform"))

	result, err := h.service.OptimalTimes(platform)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.OK(c, result)
}

// PublishNow handles POST /api/publish/:postId
func (h *ScheduleHandler) PublishNow(c *fiber.Ctx) error {
	postID := c.Params("postId")
	if postID == "" {
		return response.ValidationError(c, "Post ID is required", nil)
	}

	result, err := h.service.PublishNow(c.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.ValidationError(c, err.Error(), nil)
	}

	if result.Status == model.PostStatusFailed {
		return response.PublishError(c, result.Error)
	}

	return response.OK(c, result)
}
