package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/model"
)

// LocationServiceInterface defines the location operations used by the HTTP layer.
type LocationServiceInterface interface {
	Create(ctx context.Context, userID string, req *model.CreateLocationRequest) (*model.Location, error)
	List(ctx context.Context, userID string) ([]model.Location, error)
	GetPublic(ctx context.Context, id string) (*model.PublicLocation, error)
}

// LocationHandler handles HTTP requests for locations.
type LocationHandler struct {
	service   LocationServiceInterface
	validator *validator.Validate
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(svc LocationServiceInterface, v *validator.Validate) *LocationHandler {
	return &LocationHandler{service: svc, validator: v}
}

// List handles GET /api/locations.
func (h *LocationHandler) List(c *fiber.Ctx) error {
	locations, err := h.service.List(c.Context(), userID(c))
	if err != nil {
		return writeError(c, err, "failed to list locations")
	}
	return c.JSON(locations)
}

// Create handles POST /api/locations.
func (h *LocationHandler) Create(c *fiber.Ctx) error {
	var req model.CreateLocationRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}

	loc, err := h.service.Create(c.Context(), userID(c), &req)
	if err != nil {
		return writeError(c, err, "failed to create location")
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("user_id", userID(c)).
		Str("location_id", loc.ID).
		Str("slug", loc.Slug).
		Msg("location created")

	return c.Status(fiber.StatusCreated).JSON(loc)
}

// GetPublic handles GET /api/public/locations/:id.
func (h *LocationHandler) GetPublic(c *fiber.Ctx) error {
	loc, err := h.service.GetPublic(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err, "failed to get location")
	}
	return c.JSON(loc)
}
