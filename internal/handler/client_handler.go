package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/model"
)

// EnrollmentServiceInterface defines the enrollment operations used by the HTTP layer.
type EnrollmentServiceInterface interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResult, error)
	CreateClient(ctx context.Context, userID string, req *model.CreateClientRequest) (*model.Client, error)
	ListClients(ctx context.Context, userID, locationID, search string) ([]model.Client, error)
	UpdateClient(ctx context.Context, userID, enrollmentID string, req *model.UpdateClientRequest) (*model.Client, error)
	Unenroll(ctx context.Context, userID, enrollmentID string) error
	ListCustomerEnrollments(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error)
	GetEnrollment(ctx context.Context, customerID, enrollmentID string) (*model.CustomerEnrollment, error)
}

// LedgerServiceInterface defines the points operations used by the HTTP layer.
type LedgerServiceInterface interface {
	AddPoints(ctx context.Context, userID string, req *model.AddPointsRequest) (*model.AddPointsResponse, error)
	History(ctx context.Context, userID, enrollmentID string) ([]model.PurchaseLog, error)
}

// ClientHandler handles staff requests about enrolled customers and their points.
type ClientHandler struct {
	enrollments EnrollmentServiceInterface
	ledger      LedgerServiceInterface
	validator   *validator.Validate
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(enrollments EnrollmentServiceInterface, ledger LedgerServiceInterface, v *validator.Validate) *ClientHandler {
	return &ClientHandler{enrollments: enrollments, ledger: ledger, validator: v}
}

// List handles GET /api/clients?locationId=&search=.
func (h *ClientHandler) List(c *fiber.Ctx) error {
	locationID := c.Query("locationId")
	if locationID == "" {
		return badRequest(c, "invalid request: locationId is required")
	}
	clients, err := h.enrollments.ListClients(c.Context(), userID(c), locationID, c.Query("search"))
	if err != nil {
		return writeError(c, err, "failed to list clients")
	}
	return c.JSON(clients)
}

// Create handles POST /api/clients.
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	var req model.CreateClientRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	client, err := h.enrollments.CreateClient(c.Context(), userID(c), &req)
	if err != nil {
		return writeError(c, err, "failed to create client")
	}
	return c.Status(fiber.StatusCreated).JSON(client)
}

// Update handles PATCH /api/clients/:id.
func (h *ClientHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateClientRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	client, err := h.enrollments.UpdateClient(c.Context(), userID(c), c.Params("id"), &req)
	if err != nil {
		return writeError(c, err, "failed to update client")
	}
	return c.JSON(client)
}

// Delete handles DELETE /api/clients/:id.
func (h *ClientHandler) Delete(c *fiber.Ctx) error {
	if err := h.enrollments.Unenroll(c.Context(), userID(c), c.Params("id")); err != nil {
		return writeError(c, err, "failed to delete client")
	}
	log.Info().
		Str("request_id", requestID(c)).
		Str("user_id", userID(c)).
		Str("enrollment_id", c.Params("id")).
		Msg("client unenrolled")
	return c.SendStatus(fiber.StatusNoContent)
}

// Purchases handles GET /api/clients/:id/purchases.
func (h *ClientHandler) Purchases(c *fiber.Ctx) error {
	logs, err := h.ledger.History(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err, "failed to list purchases")
	}
	return c.JSON(logs)
}

// AddPoints handles POST /api/points.
func (h *ClientHandler) AddPoints(c *fiber.Ctx) error {
	var req model.AddPointsRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}
	resp, err := h.ledger.AddPoints(c.Context(), userID(c), &req)
	if err != nil {
		return writeError(c, err, "failed to add points")
	}
	return c.JSON(resp)
}
