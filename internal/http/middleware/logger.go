package middleware

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"bookbuddy/internal/logging"
)

// Logger writes one "http_request" line per request with method, path, status
// and latency in milliseconds. request_id comes from the user context set by
// RequestID.
func Logger(log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// A handler error has not been turned into a response yet.
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		log.Info(c.UserContext(), "http_request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", float64(time.Since(start).Microseconds())/1000,
		)
		return err
	}
}

// LoggerWithWriter logs to w with timestamps rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logging.New(w, loc, slog.LevelInfo))
}
