package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Health      *HealthHandler
	Locations   *LocationHandler
	Rewards     *RewardHandler
	Clients     *ClientHandler
	Redemptions *RedemptionHandler
	Customers   *CustomerHandler
	Invites     *InviteHandler
}

// RouteConfig carries the settings that shape routing and middleware.
type RouteConfig struct {
	GatewayToken string
	// VerifyLimit is the number of token or invite code lookups a caller may make per minute.
	VerifyLimit int
	// Metrics serves /metrics when set.
	Metrics fiber.Handler
}

// RegisterRoutes mounts the API on app.
func RegisterRoutes(app *fiber.App, h Handlers, cfg RouteConfig) {
	app.Get("/health", h.Health.Check)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	api := app.Group("/api", GatewayAuth(cfg.GatewayToken))

	public := api.Group("/public")
	public.Get("/locations/:id", h.Locations.GetPublic)
	public.Get("/locations/:id/rewards", h.Rewards.PublicList)
	public.Post("/register", h.Customers.Register)
	public.Get("/invites/validate", verifyLimiter(cfg.VerifyLimit), h.Invites.Check)

	// Staff routes share the /api prefix with the customer group, so the
	// identity check is attached per route rather than through a group.
	staff := RequireUser()
	api.Get("/locations", staff, h.Locations.List)
	api.Post("/locations", staff, h.Locations.Create)
	api.Get("/rewards", staff, h.Rewards.List)
	api.Post("/rewards", staff, h.Rewards.Create)
	api.Patch("/rewards/:id", staff, h.Rewards.Update)
	api.Delete("/rewards/:id", staff, h.Rewards.Delete)
	api.Get("/clients", staff, h.Clients.List)
	api.Post("/clients", staff, h.Clients.Create)
	api.Patch("/clients/:id", staff, h.Clients.Update)
	api.Delete("/clients/:id", staff, h.Clients.Delete)
	api.Get("/clients/:id/purchases", staff, h.Clients.Purchases)
	api.Post("/points", staff, h.Clients.AddPoints)
	api.Get("/staff/redemptions/verify", staff, verifyLimiter(cfg.VerifyLimit), h.Redemptions.Verify)
	api.Post("/staff/redemptions/complete", staff, h.Redemptions.Complete)
	api.Get("/invites", staff, h.Invites.List)
	api.Post("/invites", staff, h.Invites.Create)
	api.Post("/invites/accept", staff, verifyLimiter(cfg.VerifyLimit), h.Invites.Accept)

	customer := api.Group("/customer", RequireCustomer())
	customer.Get("/enrollments", h.Customers.Enrollments)
	customer.Get("/enrollments/:id", h.Customers.Enrollment)
	customer.Post("/redemptions", h.Redemptions.Request)
}

// verifyLimiter throttles token and code lookups per caller to slow down guessing.
func verifyLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return userID(c) + "|" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		},
	})
}
