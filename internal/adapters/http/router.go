package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/gigmap/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware(deps.logger()))
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(securityHeaders)
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// no timeout on health checks
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	venues := v1.Group("/venues")
	venues.Get("/search", bounded(SearchVenuesHandler(deps)))
	venues.Get("/nearby", bounded(NearbyVenuesHandler(deps)))
	venues.Get("/:id", bounded(GetVenueHandler(deps)))

	// marker and cluster reads are in-memory snapshots
	v1.Get("/markers", ListMarkersHandler(deps))
	v1.Post("/markers/refresh", bounded(RefreshMarkersHandler(deps)))
	v1.Get("/clusters", ClustersHandler(deps))

	v1.Post("/harvests", bounded(StartHarvestHandler(deps)))

	app.Post("/graphql", bounded(GraphQLHandler(deps)))

	SetupDocs(app, "api/openapi.yaml")

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}

// bounded runs h with requestTimeout on its user context.
func bounded(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Set("X-API-Version", "1.0.0")
	return c.Next()
}
