// Package engine orchestrates analyses and deliverables: it reads corpus
// snapshots, drives the synthesizers, persists results and serializes
// deliverable generation per (analysis, type).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"sowmatch/internal/analysis"
	"sowmatch/internal/db"
	"sowmatch/internal/deliverables"
	"sowmatch/internal/errs"
	"sowmatch/internal/export"
	"sowmatch/internal/models"
	"sowmatch/internal/oracle"
	"sowmatch/internal/validation"
)

// Corpus reads organizations and lesson snapshots.
type Corpus interface {
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
	ListLessons(ctx context.Context, orgID uuid.UUID, filter models.LessonFilter) ([]models.Lesson, error)
}

// Store persists analyses and their deliverables. Implementations report
// missing or foreign analyses with db.ErrAnalysisNotFound.
type Store interface {
	CreateAnalysis(ctx context.Context, a *models.SOWAnalysis) error
	GetAnalysis(ctx context.Context, orgID, id uuid.UUID) (*models.SOWAnalysis, error)
	ListAnalyses(ctx context.Context, orgID uuid.UUID) ([]models.SOWAnalysis, error)
	SetDeliverable(ctx context.Context, orgID, id uuid.UUID, d models.Deliverable) error
}

// Observer receives engine outcomes for metrics.
type Observer interface {
	ObserveAnalysis(outcome errs.Kind, elapsed time.Duration)
	ObserveDeliverable(t models.DeliverableType, outcome errs.Kind, elapsed time.Duration)
}

// GenerationPolicy decides what a concurrent request for an in-flight
// deliverable gets.
type GenerationPolicy string

// Generation policies
const (
	// PolicyWait shares the in-flight result with every concurrent caller.
	PolicyWait GenerationPolicy = "wait"
	// PolicyReject fails concurrent callers with GenerationInProgress.
	PolicyReject GenerationPolicy = "reject"
)

// ParseGenerationPolicy validates a policy name.
func ParseGenerationPolicy(s string) (GenerationPolicy, error) {
	switch p := GenerationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyWait:
		return PolicyWait, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown generation policy %q", s)
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Corpus    Corpus
	Store     Store
	Analyzer  *analysis.Synthesizer
	Generator *deliverables.Synthesizer
	Formatter *export.Formatter
	// Oracle serves the analyst chat.
	Oracle oracle.Oracle
}

// Options tune a Service.
type Options struct {
	Policy   GenerationPolicy
	Logger   *slog.Logger
	Observer Observer
	Now      func() time.Time
}

// Service is the engine's public surface.
type Service struct {
	corpus    Corpus
	store     Store
	analyzer  *analysis.Synthesizer
	generator *deliverables.Synthesizer
	formatter *export.Formatter
	oracle    oracle.Oracle

	policy   GenerationPolicy
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	flight   singleflight.Group
	inflight sync.Map // key -> struct{}, PolicyReject only
}

// New creates a Service.
func New(deps Deps, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = PolicyWait
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		corpus:    deps.Corpus,
		store:     deps.Store,
		analyzer:  deps.Analyzer,
		generator: deps.Generator,
		formatter: deps.Formatter,
		oracle:    deps.Oracle,
		policy:    opts.Policy,
		logger:    opts.Logger,
		observer:  opts.Observer,
		now:       opts.Now,
	}
}

// Organization resolves an organization slug.
func (s *Service) Organization(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := s.corpus.GetOrganizationBySlug(ctx, slug)
	if errors.Is(err, db.ErrOrgNotFound) {
		return nil, errs.E(errs.OrganizationNotFound, "engine.organization", "organization %q not found", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return org, nil
}

func (s *Service) organizationByID(ctx context.Context, op string, id uuid.UUID) (*models.Organization, error) {
	org, err := s.corpus.GetOrganizationByID(ctx, id)
	if errors.Is(err, db.ErrOrgNotFound) {
		return nil, errs.E(errs.OrganizationNotFound, op, "organization %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load organization: %w", op, err)
	}
	return org, nil
}

// AnalyzeInput is a new analysis request.
type AnalyzeInput struct {
	SOWText  string
	WorkType string
	Filename string
}

// Analyze runs an analysis against a snapshot of the organization's corpus
// and persists it. Nothing is written when the oracle fails.
func (s *Service) Analyze(ctx context.Context, orgID uuid.UUID, in AnalyzeInput) (a *models.SOWAnalysis, err error) {
	const op = "engine.analyze"
	start := s.now()
	defer func() { s.observeAnalysis(err, start) }()

	if valid, msg := validation.ValidateSOWText(in.SOWText); !valid {
		return nil, errs.E(errs.InvalidInput, op, "%s", msg)
	}
	if valid, msg := validation.ValidateWorkType(in.WorkType); !valid {
		return nil, errs.E(errs.InvalidInput, op, "%s", msg)
	}
	if valid, msg := validation.ValidateFilename(in.Filename); !valid {
		return nil, errs.E(errs.InvalidInput, op, "%s", msg)
	}

	org, err := s.organizationByID(ctx, op, orgID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.corpus.ListLessons(ctx, orgID, models.LessonFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read corpus: %w", op, err)
	}

	workType := strings.TrimSpace(in.WorkType)
	results, err := s.analyzer.Analyze(ctx, analysis.Input{
		SOWText:        in.SOWText,
		Lessons:        lessons,
		Profile:        org.Profile(),
		WorkTypeFilter: workType,
	})
	if err != nil {
		return nil, err
	}

	a = &models.SOWAnalysis{
		OrganizationID: orgID,
		Filename:       strings.TrimSpace(in.Filename),
		SOWText:        strings.TrimSpace(in.SOWText),
		CorpusSize:     len(lessons),
		Results:        *results,
	}
	if workType != "" {
		a.WorkTypeFilter = &workType
	}
	if err := s.store.CreateAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("analysis created",
		"organization", org.Slug, "analysis_id", a.ID, "matches", len(a.Results.Matches))
	return a, nil
}

// ListAnalyses returns the organization's history, most recent first.
func (s *Service) ListAnalyses(ctx context.Context, orgID uuid.UUID) ([]models.AnalysisSummary, error) {
	const op = "engine.list_analyses"

	analyses, err := s.store.ListAnalyses(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.AnalysisSummary, 0, len(analyses))
	for i := range analyses {
		if analyses[i].OrganizationID != orgID {
			s.logger.Error("store returned analysis of another organization",
				"organization_id", orgID, "analysis_id", analyses[i].ID, "owner", analyses[i].OrganizationID)
			return nil, errs.E(errs.TenantIsolationViolation, op, "analysis listing crossed organizations")
		}
		out = append(out, analyses[i].Summary())
	}
	return out, nil
}

// GetAnalysis loads an analysis. Analyses of other organizations are not found.
func (s *Service) GetAnalysis(ctx context.Context, orgID, id uuid.UUID) (*models.SOWAnalysis, error) {
	return s.loadAnalysis(ctx, "engine.get_analysis", orgID, id)
}

func (s *Service) loadAnalysis(ctx context.Context, op string, orgID, id uuid.UUID) (*models.SOWAnalysis, error) {
	a, err := s.store.GetAnalysis(ctx, orgID, id)
	if errors.Is(err, db.ErrAnalysisNotFound) {
		return nil, errs.E(errs.AnalysisNotFound, op, "analysis %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if a.OrganizationID != orgID {
		s.logger.Error("store returned analysis of another organization",
			"organization_id", orgID, "analysis_id", id, "owner", a.OrganizationID)
		return nil, errs.E(errs.AnalysisNotFound, op, "analysis %s not found", id)
	}
	return a, nil
}

// Export renders an analysis and its cached deliverables.
func (s *Service) Export(ctx context.Context, orgID, id uuid.UUID, target export.Target) (*export.Document, error) {
	const op = "engine.export"

	a, err := s.loadAnalysis(ctx, op, orgID, id)
	if err != nil {
		return nil, err
	}
	lessons, err := s.corpus.ListLessons(ctx, orgID, models.LessonFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read corpus: %w", op, err)
	}
	doc, err := s.formatter.Format(a, lessons, target, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

func (s *Service) observeAnalysis(err error, start time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveAnalysis(outcome(err), s.now().Sub(start))
}

func outcome(err error) errs.Kind {
	if err == nil {
		return "ok"
	}
	return errs.KindOf(err)
}
