package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/model"
)

// CustomerHandler handles public enrollment and the customer's own views.
type CustomerHandler struct {
	service   EnrollmentServiceInterface
	validator *validator.Validate
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(svc EnrollmentServiceInterface, v *validator.Validate) *CustomerHandler {
	return &CustomerHandler{service: svc, validator: v}
}

// Register handles POST /api/public/register.
// Returns 201 for a new enrollment and 200 when the customer was already enrolled.
func (h *CustomerHandler) Register(c *fiber.Ctx) error {
	var req model.RegisterRequest
	if msg := bindJSON(c, h.validator, &req); msg != "" {
		return badRequest(c, msg)
	}

	res, err := h.service.Register(c.Context(), &req)
	if err != nil {
		return writeError(c, err, "failed to register customer")
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("location_id", res.LocationID).
		Str("enrollment_id", res.EnrollmentID).
		Bool("created", res.Created).
		Msg("customer registered")

	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(res)
}

// Enrollments handles GET /api/customer/enrollments.
func (h *CustomerHandler) Enrollments(c *fiber.Ctx) error {
	enrollments, err := h.service.ListCustomerEnrollments(c.Context(), customerID(c))
	if err != nil {
		return writeError(c, err, "failed to list enrollments")
	}
	return c.JSON(enrollments)
}

// Enrollment handles GET /api/customer/enrollments/:id.
func (h *CustomerHandler) Enrollment(c *fiber.Ctx) error {
	enrollment, err := h.service.GetEnrollment(c.Context(), customerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err, "failed to get enrollment")
	}
	return c.JSON(enrollment)
}
