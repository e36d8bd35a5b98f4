package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sowmatch/internal/engine"
	"sowmatch/internal/handlers/api"
	"sowmatch/internal/middleware"
)

// Routes are the collaborators the HTTP routes need.
type Routes struct {
	Service  *engine.Service
	Verifier middleware.TokenVerifier // nil disables authentication
	Health   api.Pinger               // nil for the in-memory backend
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(r Routes) {
	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(r.Verifier, r.Service, s.Logger)

	// Initialize handlers
	analysisHandler := api.NewAnalysisHandler(r.Service, s.Logger)
	chatHandler := api.NewChatHandler(r.Service, s.Logger)
	healthHandler := api.NewHealthHandler(r.Health)

	if r.Verifier == nil {
		s.Logger.Warn("authentication disabled; every caller may act on every organization")
	}

	s.App.Get("/healthz", healthHandler.Check)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Organization-scoped API
	org := s.App.Group("/api/v1/organizations/:org", authMiddleware.RequireAuth, authMiddleware.RequireOrgAccess)
	org.Post("/analyses", analysisHandler.Create)
	org.Get("/analyses", analysisHandler.List)
	org.Get("/analyses/:id", analysisHandler.Get)
	org.Post("/analyses/:id/deliverables", analysisHandler.Generate)
	org.Get("/analyses/:id/export", analysisHandler.Export)
	org.Post("/chat", chatHandler.Send)
}
