package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/service"
)

// errorStatuses maps service sentinels to HTTP statuses. The sentinel text is the response message.
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, fiber.StatusNotFound},
	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrInvalidInput, fiber.StatusBadRequest},
	{service.ErrInvalidAmount, fiber.StatusBadRequest},
	{service.ErrInsufficientBalance, fiber.StatusBadRequest},
	{service.ErrRewardNotRedeemable, fiber.StatusBadRequest},
	{service.ErrInvalidOrExpired, fiber.StatusBadRequest},
	{service.ErrAlreadyConsumed, fiber.StatusConflict},
	{service.ErrPhoneInUse, fiber.StatusConflict},
	{service.ErrRewardUndeletable, fiber.StatusBadRequest},
	{service.ErrSlugTaken, fiber.StatusConflict},
	{service.ErrInviteCodeTaken, fiber.StatusConflict},
	{service.ErrInviteUsed, fiber.StatusBadRequest},
	{service.ErrInviteExpired, fiber.StatusBadRequest},
}

// writeError responds with the status for a known sentinel, or logs and responds 500.
func writeError(c *fiber.Ctx, err error, msg string) error {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(fiber.Map{"error": m.err.Error()})
		}
	}
	log.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// bindJSON parses and validates the request body into out.
// It returns a client-facing message, or "" when the body is acceptable.
func bindJSON(c *fiber.Ctx, v *validator.Validate, out any) string {
	if err := c.BodyParser(out); err != nil {
		return "invalid request body"
	}
	if err := v.Struct(out); err != nil {
		return formatValidationError(err)
	}
	return ""
}

// formatValidationError describes the first failed rule using the field's JSON name.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}
	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "lte":
		return "invalid request: " + field + " must be at most " + fe.Param()
	case "email":
		return "invalid request: " + field + " must be a valid email address"
	case "phone":
		return "invalid request: " + field + " must be a valid phone number"
	case "url":
		return "invalid request: " + field + " must be a valid URL"
	default:
		return "invalid request: " + field + " is invalid"
	}
}
