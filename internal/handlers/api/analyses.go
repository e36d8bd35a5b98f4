package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"sowmatch/internal/deliverables"
	"sowmatch/internal/engine"
	"sowmatch/internal/export"
	"sowmatch/internal/middleware"
	"sowmatch/internal/models"
)

// AnalysisHandler serves analyses, deliverables and exports of one
// organization. Routes run behind RequireOrgAccess.
type AnalysisHandler struct {
	svc    *engine.Service
	logger *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(svc *engine.Service, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{svc: svc, logger: logger}
}

// Create runs a new analysis.
func (h *AnalysisHandler) Create(c fiber.Ctx) error {
	org, ok := middleware.Organization(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		SOWText  string `json:"sow_text"`
		WorkType string `json:"work_type"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	a, err := h.svc.Analyze(c.Context(), org.ID, engine.AnalyzeInput{
		SOWText:  body.SOWText,
		WorkType: body.WorkType,
		Filename: body.Filename,
	})
	if err != nil {
		return engineError(c, h.logger, err, nil)
	}

	return jsonSuccess(c, models.AnalyzeResponse{ID: a.ID, Results: a.Results})
}

// List returns the organization's analysis history, most recent first.
func (h *AnalysisHandler) List(c fiber.Ctx) error {
	org, ok := middleware.Organization(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	list, err := h.svc.ListAnalyses(c.Context(), org.ID)
	if err != nil {
		return engineError(c, h.logger, err, nil)
	}
	return jsonSuccess(c, list)
}

// Get returns a single analysis with its cached deliverables.
func (h *AnalysisHandler) Get(c fiber.Ctx) error {
	org, ok := middleware.Organization(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid analysis id")
	}

	a, err := h.svc.GetAnalysis(c.Context(), org.ID, id)
	if err != nil {
		return engineError(c, h.logger, err, nil)
	}
	return jsonSuccess(c, a)
}

// Generate synthesizes or regenerates one deliverable. A failed generation
// answers with an error-status deliverable the client can display.
func (h *AnalysisHandler) Generate(c fiber.Ctx) error {
	org, ok := middleware.Organization(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid analysis id")
	}

	var body struct {
		DeliverableType models.DeliverableType `json:"deliverable_type"`
		Params          *models.StaffingParams `json:"params"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	d, err := h.svc.GenerateDeliverable(c.Context(), org.ID, id, body.DeliverableType,
		models.DeliverableParams{Staffing: body.Params})
	if err != nil {
		var data any
		if body.DeliverableType.Valid() {
			data = models.DeliverableResponse{
				DeliverableType: body.DeliverableType,
				Content:         deliverables.ErrorContent(body.DeliverableType, err, time.Now()),
			}
		}
		return engineError(c, h.logger, err, data)
	}

	return jsonSuccess(c, models.DeliverableResponse{DeliverableType: d.Type, Content: *d})
}

// Export downloads the analysis as a spreadsheet, HTML report or text file.
func (h *AnalysisHandler) Export(c fiber.Ctx) error {
	org, ok := middleware.Organization(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid analysis id")
	}
	target, ok := export.ParseTarget(c.Query("format"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "format must be spreadsheet, report or text")
	}

	doc, err := h.svc.Export(c.Context(), org.ID, id, target)
	if err != nil {
		return engineError(c, h.logger, err, nil)
	}

	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	return c.Send(doc.Body)
}
