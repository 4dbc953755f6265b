package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/internal/service"
)

// RedemptionServiceInterface defines the redemption operations used by the HTTP layer.
type RedemptionServiceInterface interface {
	Request(ctx context.Context, customerID string, req *model.RequestRedemptionRequest) (*model.RedemptionTicket, error)
	Verify(ctx context.Context, userID, token string) (*model.RedemptionPreview, error)
	Complete(ctx context.Context, userID, token string) (*model.RedemptionReceipt, error)
}

// RedemptionHandler handles the customer request and the staff verify and complete steps.
type RedemptionHandler struct {
	service   RedemptionServiceInterface
	validator *validator.Validate
}

// NewRedemptionHandler creates a new RedemptionHandler.
func NewRedemptionHandler(svc RedemptionServiceInterface, v *validator.Validate) *RedemptionHandler {
	return &RedemptionHandler{service: svc, validator: v}
}

// Request handles POST /api/customer/redemptions.
func (h *RedemptionHandler) Request(c *fiber.Ctx) error {
	var req model.RequestRedemptionRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	ticket, err := h.service.Request(c.Context(), customerID(c), &req)
	if err != nil {
		return writeError(c, err, "failed to request redemption")
	}
	return c.Status(fiber.StatusCreated).JSON(ticket)
}

// Verify handles GET /api/staff/redemptions/verify?token=.
func (h *RedemptionHandler) Verify(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return badRequest(c, "invalid request: token is required")
	}
	preview, err := h.service.Verify(c.Context(), userID(c), token)
	if err != nil {
		return writeError(c, err, "failed to verify redemption")
	}
	return c.JSON(preview)
}

// Complete handles POST /api/staff/redemptions/complete.
func (h *RedemptionHandler) Complete(c *fiber.Ctx) error {
	var req model.CompleteRedemptionRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	receipt, err := h.service.Complete(c.Context(), userID(c), req.Token)
	if err != nil {
		// The balance was enough when the customer asked but has been spent since.
		if errors.Is(err, service.ErrInsufficientBalance) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "insufficient points now"})
		}
		return writeError(c, err, "failed to complete redemption")
	}
	return c.JSON(receipt)
}
