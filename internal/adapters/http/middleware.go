package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	loggerKey    ctxKey = "logger"
)

// RequestIDLogMiddleware stores the fiber request ID and a logger carrying
// it in the user context, so usecases can log with request scope.
func RequestIDLogMiddleware(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		ctx := context.WithValue(c.UserContext(), requestIDKey, rid)
		ctx = context.WithValue(ctx, loggerKey, base.With("request_id", rid))
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// LoggerFromCtx returns the request-scoped logger, or the default logger.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// AccessLogMiddleware writes one structured log line per request. The level
// follows the response status.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		LoggerFromCtx(c.UserContext()).LogAttrs(c.UserContext(), level, "http request", attrs...)
		return err
	}
}

// ETagMiddleware sets a weak ETag on successful GET responses and answers
// 304 when the client already holds it.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		sum := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

// CachingMiddleware applies a default Cache-Control to GET responses that
// did not set one. Live marker state is never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}
		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "public, max-age=10"
	case path == "/metrics", path == "/ws",
		strings.HasPrefix(path, "/v1/markers"), strings.HasPrefix(path, "/v1/clusters"):
		return "no-cache"
	case strings.HasPrefix(path, "/v1/venues/search"):
		return "public, max-age=60"
	case strings.HasPrefix(path, "/v1/venues/nearby"):
		return "public, max-age=300"
	case strings.HasPrefix(path, "/v1/venues/"):
		return "public, max-age=600"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=300"
	}
	return ""
}
