package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

const healthProbeKey = "__health_check__"

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": "dev",
		}
		if deps.Markers != nil {
			body["reconcile_cycles"] = deps.Markers.Cycles()
		}
		return c.JSON(body)
	}
}

// ReadyHandler checks database, NATS and cache connectivity. The database is
// required; NATS and the cache are optional but must be healthy when wired.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		switch {
		case deps.DB == nil:
			checks["database"] = "not configured"
			allOK = false
		case deps.DB.Ping(ctx) != nil:
			checks["database"] = "unreachable"
			allOK = false
		default:
			checks["database"] = "ok"
		}

		switch {
		case deps.NATS == nil:
			checks["nats"] = "not configured"
		case !deps.NATS.IsConnected():
			checks["nats"] = "disconnected"
			allOK = false
		default:
			checks["nats"] = "ok"
		}

		if deps.Cache == nil {
			checks["cache"] = "not configured"
		} else if _, err := deps.Cache.Get(ctx, healthProbeKey); err != nil && !errors.Is(err, domain.ErrCacheMiss) {
			checks["cache"] = "error: " + err.Error()
			allOK = false
		} else {
			checks["cache"] = "ok"
		}

		status, code := "ready", fiber.StatusOK
		if !allOK {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
