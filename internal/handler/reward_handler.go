package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/alignperks/loyalty-portal/internal/model"
)

// CatalogServiceInterface defines the catalog operations used by the HTTP layer.
type CatalogServiceInterface interface {
	ListRewards(ctx context.Context, userID, locationID string) ([]model.RewardItem, error)
	PublicCatalog(ctx context.Context, locationID string) ([]model.RewardItem, error)
	CreateReward(ctx context.Context, userID string, req *model.CreateRewardRequest) (*model.RewardItem, error)
	UpdateReward(ctx context.Context, userID, rewardID string, req *model.UpdateRewardRequest) (*model.RewardItem, error)
	DeleteReward(ctx context.Context, userID, rewardID string) error
}

// RewardHandler handles HTTP requests for reward catalogs.
type RewardHandler struct {
	service   CatalogServiceInterface
	validator *validator.Validate
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(svc CatalogServiceInterface, v *validator.Validate) *RewardHandler {
	return &RewardHandler{service: svc, validator: v}
}

// List handles GET /api/rewards?locationId=.
func (h *RewardHandler) List(c *fiber.Ctx) error {
	locationID := c.Query("locationId")
	if locationID == "" {
		return badRequest(c, "invalid request: locationId is required")
	}
	items, err := h.service.ListRewards(c.Context(), userID(c), locationID)
	if err != nil {
		return writeError(c, err, "failed to list rewards")
	}
	return c.JSON(items)
}

// Create handles POST /api/rewards.
func (h *RewardHandler) Create(c *fiber.Ctx) error {
	var req model.CreateRewardRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	item, err := h.service.CreateReward(c.Context(), userID(c), &req)
	if err != nil {
		return writeError(c, err, "failed to create reward")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// Update handles PATCH /api/rewards/:id.
func (h *RewardHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateRewardRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	item, err := h.service.UpdateReward(c.Context(), userID(c), c.Params("id"), &req)
	if err != nil {
		return writeError(c, err, "failed to update reward")
	}
	return c.JSON(item)
}

// Delete handles DELETE /api/rewards/:id.
func (h *RewardHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteReward(c.Context(), userID(c), c.Params("id")); err != nil {
		return writeError(c, err, "failed to delete reward")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublicList handles GET /api/public/locations/:id/rewards.
func (h *RewardHandler) PublicList(c *fiber.Ctx) error {
	items, err := h.service.PublicCatalog(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err, "failed to list public rewards")
	}
	return c.JSON(items)
}
