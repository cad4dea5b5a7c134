package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"bookbuddy/internal/logging"
)

const (
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey holds the id in Fiber locals for the error envelope.
	RequestIDLocalKey = "request_id"

	maxRequestIDLen = 64
)

// RequestID accepts a caller's X-Request-ID when it is a short token of
// letters, digits, '-', '_' or '.', and otherwise issues a new UUID. The id is
// echoed on the response, stored in locals and attached to the user context so
// every log line written while serving the request carries it.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDLocalKey).(string)
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
