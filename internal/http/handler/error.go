package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bookbuddy/internal/capture"
	"bookbuddy/internal/fetch"
	"bookbuddy/internal/http/middleware"
	"bookbuddy/internal/render"
	"bookbuddy/internal/service"
	"bookbuddy/internal/session"
	"bookbuddy/internal/webhook"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_URL", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.GetRequestID(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a domain error to a response. Messages of known
// errors are safe to show; anything else becomes INTERNAL_ERROR.
func writeServiceError(c *fiber.Ctx, err error) error {
	var (
		deviceErr *capture.DeviceAccessError
		renderErr *render.RenderError
		statusErr *fetch.StatusError
	)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "session not found")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "rendition not found")
	case errors.As(err, &deviceErr):
		return writeError(c, fiber.StatusConflict, "DEVICE_UNAVAILABLE", deviceErr.Error())
	case errors.Is(err, capture.ErrAlreadyRecording):
		return writeError(c, fiber.StatusConflict, "DEVICE_UNAVAILABLE", err.Error())
	case errors.Is(err, capture.ErrNotRecording):
		return writeError(c, fiber.StatusConflict, "NOT_RECORDING", err.Error())
	case errors.Is(err, capture.ErrRecordingTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "RECORDING_TOO_LARGE", err.Error())
	case errors.Is(err, webhook.ErrInvalidURL):
		return writeError(c, fiber.StatusBadRequest, "INVALID_URL", "Please enter a valid webhook URL")
	case errors.Is(err, service.ErrNoPending):
		return writeError(c, fiber.StatusConflict, "NO_RECORDING", err.Error())
	case errors.Is(err, service.ErrDetailsRequired),
		errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrIDRequired),
		errors.Is(err, session.ErrInvalidSettings):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrUnsupportedFile):
		return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_FILE", err.Error())
	case errors.As(err, &renderErr):
		return writeError(c, fiber.StatusUnprocessableEntity, "RENDER_ERROR", renderErr.Error())
	case errors.Is(err, fetch.ErrUnsupportedURL):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_URL", err.Error())
	case errors.Is(err, fetch.ErrEmptyDocument):
		return writeError(c, fiber.StatusUnprocessableEntity, "EMPTY_DOCUMENT", err.Error())
	case errors.As(err, &statusErr):
		return writeError(c, fiber.StatusBadGateway, "FETCH_FAILED", statusErr.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
