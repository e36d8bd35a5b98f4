package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a health handler. store may be nil for the
// in-memory backend.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check returns ok when the store answers a ping within two seconds.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			return jsonError(c, fiber.StatusServiceUnavailable, "database unreachable")
		}
	}
	return jsonSuccess(c, fiber.Map{"healthy": true})
}
