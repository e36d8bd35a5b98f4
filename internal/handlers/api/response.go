package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"sowmatch/internal/errs"
)

// retryAfterSeconds is advertised when a generation is already in flight.
const retryAfterSeconds = "5"

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// statusFor maps an engine error kind to an HTTP status.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.InvalidInput:
		return fiber.StatusBadRequest
	case errs.AnalysisNotFound, errs.OrganizationNotFound:
		return fiber.StatusNotFound
	case errs.GenerationInProgress:
		return fiber.StatusConflict
	case errs.OracleParseFailure:
		return fiber.StatusBadGateway
	case errs.OracleUnavailable:
		return fiber.StatusServiceUnavailable
	case errs.OracleTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// engineError writes err with its kind and whether the client may retry. Internal failures are logged and
// their details withheld; data, when non-nil, is included in the envelope.
func engineError(c fiber.Ctx, logger *slog.Logger, err error, data any) error {
	kind := errs.KindOf(err)
	status := statusFor(kind)

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		logger.Error("request failed", "path", c.Path(), "kind", kind, "error", err)
		message = "internal error"
	}
	if kind == errs.GenerationInProgress {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}

	var e *errs.Error
	retryable := errors.As(err, &e) && e.Retryable()

	body := fiber.Map{
		"status":    "error",
		"error":     message,
		"kind":      kind,
		"retryable": retryable,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}
