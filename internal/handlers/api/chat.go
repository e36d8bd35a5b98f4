package api

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"sowmatch/internal/engine"
	"sowmatch/internal/middleware"
	"sowmatch/internal/models"
)

// ChatHandler serves the lessons analyst chat.
type ChatHandler struct {
	svc    *engine.Service
	logger *slog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *engine.Service, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{svc: svc, logger: logger}
}

// Send answers one message in the context of the conversation history.
func (h *ChatHandler) Send(c fiber.Ctx) error {
	org, ok := middleware.Organization(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		Message string               `json:"message"`
		History []models.ChatMessage `json:"history"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := h.svc.Chat(c.Context(), org.ID, body.Message, body.History)
	if err != nil {
		return engineError(c, h.logger, err, nil)
	}
	return jsonSuccess(c, models.ChatResponse{Response: reply})
}
