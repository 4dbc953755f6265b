package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/alignperks/loyalty-portal/internal/model"
)

// InviteServiceInterface defines the staff invite operations used by the HTTP layer.
type InviteServiceInterface interface {
	Create(ctx context.Context, userID string, req *model.CreateInviteRequest) (*model.Invite, error)
	List(ctx context.Context, userID, locationID string) ([]model.Invite, error)
	Check(ctx context.Context, code string) (*model.InviteCheck, error)
	Accept(ctx context.Context, userID, code string) (*model.InviteAcceptance, error)
}

// InviteHandler handles HTTP requests for staff invites.
type InviteHandler struct {
	service   InviteServiceInterface
	validator *validator.Validate
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(svc InviteServiceInterface, v *validator.Validate) *InviteHandler {
	return &InviteHandler{service: svc, validator: v}
}

// List handles GET /api/invites?locationId=.
func (h *InviteHandler) List(c *fiber.Ctx) error {
	invites, err := h.service.List(c.Context(), userID(c), c.Query("locationId"))
	if err != nil {
		return writeError(c, err, "failed to list invites")
	}
	return c.JSON(invites)
}

// Create handles POST /api/invites.
func (h *InviteHandler) Create(c *fiber.Ctx) error {
	var req model.CreateInviteRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	inv, err := h.service.Create(c.Context(), userID(c), &req)
	if err != nil {
		return writeError(c, err, "failed to create invite")
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

// Accept handles POST /api/invites/accept.
func (h *InviteHandler) Accept(c *fiber.Ctx) error {
	var req model.AcceptInviteRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	res, err := h.service.Accept(c.Context(), userID(c), req.Code)
	if err != nil {
		return writeError(c, err, "failed to accept invite")
	}
	return c.JSON(res)
}

// Check handles GET /api/public/invites/validate?code=.
func (h *InviteHandler) Check(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return badRequest(c, "invalid request: code is required")
	}
	check, err := h.service.Check(c.Context(), code)
	if err != nil {
		return writeError(c, err, "failed to check invite")
	}
	return c.JSON(check)
}
