package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sowmatch/internal/deliverables"
	"sowmatch/internal/errs"
	"sowmatch/internal/models"
	"sowmatch/internal/validation"
)

// GenerateDeliverable synthesizes a deliverable and replaces the cached one.
// At most one generation per (analysis, type) is in flight; concurrent
// callers share its result or are rejected, depending on the policy. A
// failed generation leaves the cache untouched.
func (s *Service) GenerateDeliverable(ctx context.Context, orgID, id uuid.UUID, t models.DeliverableType, params models.DeliverableParams) (d *models.Deliverable, err error) {
	const op = "engine.generate_deliverable"
	start := s.now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveDeliverable(t, outcome(err), s.now().Sub(start))
		}
	}()

	if valid, msg := validation.ValidateDeliverableType(string(t)); !valid {
		return nil, errs.E(errs.InvalidInput, op, "%s", msg)
	}
	if t == models.DeliverableStaffingEstimate && params.Staffing != nil {
		p := *params.Staffing
		if valid, msg := validation.NormalizeStaffingParams(&p); !valid {
			return nil, errs.E(errs.InvalidInput, op, "%s", msg)
		}
		params.Staffing = &p
	}

	// Ownership is checked before joining a flight or taking the try-lock so
	// a foreign caller can neither share a result nor observe one in progress.
	if _, err := s.loadAnalysis(ctx, op, orgID, id); err != nil {
		return nil, err
	}
	key := orgID.String() + "/" + id.String() + "/" + string(t)

	if s.policy == PolicyReject {
		if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
			return nil, errs.E(errs.GenerationInProgress, op, "%s is already being generated", t)
		}
		defer s.inflight.Delete(key)
		return s.generate(ctx, orgID, id, t, params)
	}

	// The shared call runs detached from any single caller so one client
	// going away does not fail the others; oracle attempts carry their own
	// timeouts. A caller that leaves early is told the generation is still
	// in progress, and the shared result is cached when it completes.
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.generate(context.WithoutCancel(ctx), orgID, id, t, params)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := res.Val.(*models.Deliverable).Clone()
		return &out, nil
	case <-ctx.Done():
		return nil, errs.Wrap(errs.GenerationInProgress, op, ctx.Err(), "request ended before generation finished")
	}
}

func (s *Service) generate(ctx context.Context, orgID, id uuid.UUID, t models.DeliverableType, params models.DeliverableParams) (*models.Deliverable, error) {
	const op = "engine.generate_deliverable"

	a, err := s.loadAnalysis(ctx, op, orgID, id)
	if err != nil {
		return nil, err
	}
	org, err := s.organizationByID(ctx, op, orgID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.corpus.ListLessons(ctx, orgID, models.LessonFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read corpus: %w", op, err)
	}

	d, err := s.generator.Generate(ctx, deliverables.Request{
		Analysis: a,
		Type:     t,
		Params:   params,
		Lessons:  lessons,
		Profile:  org.Profile(),
	})
	if err != nil {
		s.logger.Warn("deliverable generation failed",
			"analysis_id", id, "type", t, "kind", errs.KindOf(err), "error", err)
		return nil, err
	}

	if err := s.store.SetDeliverable(ctx, orgID, id, *d); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}
