package handler

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Identity headers set by the upstream gateway after it has authenticated the caller.
const (
	HeaderUserID     = "X-User-ID"
	HeaderCustomerID = "X-Customer-ID"
)

const (
	localUserID     = "user_id"
	localCustomerID = "customer_id"
)

// GatewayAuth rejects requests that do not carry the gateway's bearer token.
// An empty token disables the check.
func GatewayAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		presented, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			log.Warn().
				Str("request_id", requestID(c)).
				Str("path", c.Path()).
				Msg("gateway token missing or invalid")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

// RequireUser admits only requests identified as a portal user.
func RequireUser() fiber.Handler {
	return requireIdentity(HeaderUserID, localUserID)
}

// RequireCustomer admits only requests identified as a customer.
func RequireCustomer() fiber.Handler {
	return requireIdentity(HeaderCustomerID, localCustomerID)
}

func requireIdentity(header, local string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(header))
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing " + header})
		}
		c.Locals(local, id)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func customerID(c *fiber.Ctx) string {
	id, _ := c.Locals(localCustomerID).(string)
	return id
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
