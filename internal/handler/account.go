package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/avatarforge/api/internal/middleware"
	"github.com/avatarforge/api/internal/model"
	"github.com/avatarforge/api/internal/service"
	"github.com/avatarforge/api/internal/store"
	"github.com/avatarforge/api/pkg/response"
)

type AccountHandler struct {
	store     *store.Store
	schedules *service.ScheduleService
	validator *validator.Validate
}

func NewAccountHandler(st *store.Store, schedules *service.ScheduleService, v *validator.Validate) *AccountHandler {
	return &AccountHandler{
		store:     st,
		schedules: schedules,
		validator: v,
	}
}

type connectAccountRequest struct {
	AvatarID    string         `json:"avatarId,omitempty" validate:"omitempty,uuid4"`
	Platform    model.Platform `json:"platform" validate:"required,oneof=instagram tiktok twitter fanhub"`
	Username    string         `json:"username" validate:"required,min=1,max=100"`
	AccessToken string         `json:"accessToken" validate:"required"`
	Timezone    string         `json:"timezone" validate:"required"`
}

// Connect handles POST /api/accounts
func (h *AccountHandler) Connect(c *fiber.Ctx) error {
	var req connectAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return response.ValidationError(c, "Invalid timezone", nil)
	}

	account := &model.SocialAccount{
		ID:          uuid.New().String(),
		UserID:      middleware.GetUserID(c),
		AvatarID:    req.AvatarID,
		Platform:    req.Platform,
		Username:    req.Username,
		AccessToken: req.AccessToken,
		Timezone:    req.Timezone,
		Status:      model.AccountActive,
		HealthScore: 100,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.store.SaveAccount(c.Context(), account); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, account)
}

// Get handles GET /api/accounts/:accountId
func (h *AccountHandler) Get(c *fiber.Ctx) error {
	accountID := c.Params("accountId")
	if accountID == "" {
		return response.ValidationError(c, "Account ID is required", nil)
	}

	account, err := h.store.GetAccount(c.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Account not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, account)
}

// Health handles GET /api/accounts/:accountId/health
func (h *AccountHandler) Health(c *fiber.Ctx) error {
	accountID := c.Params("accountId")
	if accountID == "" {
		return response.ValidationError(c, "Account ID is required", nil)
	}

	health, err := h.schedules.CheckAccountHealth(c.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Account not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, health)
}
