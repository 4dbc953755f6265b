package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency the service cannot work without.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the service's dependencies are reachable.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a HealthHandler checking each named dependency.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Check handles GET /health.
// Returns 200 {"status":"healthy"} when every dependency answers, otherwise 503
// with the failing dependencies listed under "failed".
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
	defer cancel()

	var failed []string
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			log.Error().Err(err).Str("dependency", name).Msg("health check failed")
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"failed": failed,
		})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}
