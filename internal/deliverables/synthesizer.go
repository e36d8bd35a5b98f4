// Package deliverables synthesizes downstream artifacts from a persisted
// analysis: risk register, staffing estimate, specification gaps and an
// executive narrative. Each type has its own prompt and a typed reply schema
// that is validated before anything reaches the cache.
package deliverables

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
	"sowmatch/internal/oracle"
	"sowmatch/internal/validation"
)

// DefaultMaxTokens is the reply budget for deliverable generation.
const DefaultMaxTokens = 8000

// Synthesizer generates deliverables.
type Synthesizer struct {
	oracle    oracle.Oracle
	logger    *slog.Logger
	maxTokens int
	now       func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock overrides the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// WithMaxTokens overrides the reply budget.
func WithMaxTokens(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// NewSynthesizer creates a deliverable synthesizer.
func NewSynthesizer(o oracle.Oracle, logger *slog.Logger, opts ...Option) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synthesizer{oracle: o, logger: logger, maxTokens: DefaultMaxTokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request is one generation request. Lessons is the current corpus, used to
// enrich matched lesson ids with their details.
type Request struct {
	Analysis *models.SOWAnalysis
	Type     models.DeliverableType
	Params   models.DeliverableParams
	Lessons  []models.Lesson
	Profile  models.OrganizationProfile
}

// Generate drives the oracle with the type's prompt and returns validated
// content with status ok. It never writes anywhere.
func (s *Synthesizer) Generate(ctx context.Context, req Request) (*models.Deliverable, error) {
	const op = "deliverables.generate"

	if req.Analysis == nil || req.Analysis.ID == uuid.Nil {
		return nil, errs.E(errs.AnalysisNotFound, op, "analysis has not been persisted")
	}
	if valid, msg := validation.ValidateDeliverableType(string(req.Type)); !valid {
		return nil, errs.E(errs.InvalidInput, op, "%s", msg)
	}

	c := buildContext(req.Analysis, req.Lessons, req.Profile)

	var (
		system, schema, prompt string
		err                    error
		staffing               models.StaffingParams
	)
	switch req.Type {
	case models.DeliverableRiskRegister:
		system, schema = riskSystem, riskSchema
		prompt, err = riskPrompt(c)
	case models.DeliverableStaffingEstimate:
		if req.Params.Staffing != nil {
			staffing = *req.Params.Staffing
		}
		if valid, msg := validation.NormalizeStaffingParams(&staffing); !valid {
			return nil, errs.E(errs.InvalidInput, op, "%s", msg)
		}
		system, schema = staffingSystem, staffingSchema
		prompt, err = staffingPrompt(c, staffing)
	case models.DeliverableSpecGaps:
		system, schema = specGapsSystem, specGapsSchema
		prompt, err = specGapsPrompt(c)
	case models.DeliverableExecutiveNarrative:
		system, schema = narrativeSystem, narrativeSchema
		prompt, err = narrativePrompt(c)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	text, err := s.oracle.Complete(ctx, oracle.Request{
		Operation:  string(req.Type),
		System:     system,
		Prompt:     prompt,
		MaxTokens:  s.maxTokens,
		SchemaHint: schema,
	})
	if err != nil {
		return nil, err
	}

	d := models.Deliverable{
		Type:        req.Type,
		Status:      models.StatusOK,
		Title:       req.Type.Title(),
		GeneratedAt: s.now().UTC(),
	}

	switch req.Type {
	case models.DeliverableRiskRegister:
		d.RiskRegister, err = decodeRiskRegister(text)
	case models.DeliverableStaffingEstimate:
		d.StaffingEstimate, err = decodeStaffing(text, staffing)
	case models.DeliverableSpecGaps:
		d.SpecGaps, err = decodeSpecGaps(text)
	case models.DeliverableExecutiveNarrative:
		d.ExecutiveNarrative, err = decodeNarrative(text)
	}
	if err != nil {
		s.logger.Warn("deliverable reply rejected",
			"analysis_id", req.Analysis.ID, "type", req.Type, "error", err)
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, errs.Wrap(errs.OracleParseFailure, op, err, "deliverable failed validation")
	}

	s.logger.Info("deliverable generated", "analysis_id", req.Analysis.ID, "type", req.Type)
	return &d, nil
}

// ErrorContent renders a failure as a status=error deliverable for API
// responses. It is never cached.
func ErrorContent(t models.DeliverableType, err error, now time.Time) models.Deliverable {
	return models.Deliverable{
		Type:        t,
		Status:      models.StatusError,
		Title:       t.Title(),
		Message:     err.Error(),
		GeneratedAt: now.UTC(),
	}
}
