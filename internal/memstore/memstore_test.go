package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"sowmatch/internal/db"
	"sowmatch/internal/models"
)

func createOrg(t *testing.T, s *Store, slug string) *models.Organization {
	t.Helper()
	org, err := s.UpsertOrganization(context.Background(), &models.Organization{Name: slug, Slug: slug})
	if err != nil {
		t.Fatalf("UpsertOrganization() error = %v", err)
	}
	return org
}

func analysisFor(orgID uuid.UUID, filename string) *models.SOWAnalysis {
	return &models.SOWAnalysis{
		OrganizationID: orgID,
		Filename:       filename,
		SOWText:        "scope",
		Results: models.AnalysisResults{
			Summary: "summary",
			Matches: []models.Match{{LessonID: 1, Relevance: models.RelevanceHigh, Reason: "original"}},
		},
	}
}

func TestUpsertOrganization_KeepsID(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := createOrg(t, s, "northline")
	second, err := s.UpsertOrganization(ctx, &models.Organization{Name: "Northline", Slug: "northline", ProfileText: "v2"})
	if err != nil {
		t.Fatalf("UpsertOrganization() error = %v", err)
	}
	if first.ID != second.ID || second.ProfileText != "v2" {
		t.Errorf("UpsertOrganization() = %+v, want same id with updated profile", second)
	}

	if _, err := s.GetOrganizationBySlug(ctx, "missing"); !errors.Is(err, db.ErrOrgNotFound) {
		t.Errorf("GetOrganizationBySlug() error = %v, want ErrOrgNotFound", err)
	}
}

func TestCreateAnalysis_DeepCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	org := createOrg(t, s, "org")

	a := analysisFor(org.ID, "scope.docx")
	if err := s.CreateAnalysis(ctx, a); err != nil {
		t.Fatalf("CreateAnalysis() error = %v", err)
	}
	a.Results.Matches[0].Reason = "mutated after store"

	got, err := s.GetAnalysis(ctx, org.ID, a.ID)
	if err != nil {
		t.Fatalf("GetAnalysis() error = %v", err)
	}
	if got.Results.Matches[0].Reason != "original" {
		t.Errorf("stored reason = %q, want original", got.Results.Matches[0].Reason)
	}

	got.Results.Matches[0].Reason = "mutated after read"
	again, _ := s.GetAnalysis(ctx, org.ID, a.ID)
	if again.Results.Matches[0].Reason != "original" {
		t.Error("GetAnalysis() handed out shared state")
	}
}

func TestTenantIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	orgA := createOrg(t, s, "a")
	orgB := createOrg(t, s, "b")

	for i := 0; i < 3; i++ {
		if err := s.CreateAnalysis(ctx, analysisFor(orgA.ID, fmt.Sprintf("a-%d", i))); err != nil {
			t.Fatalf("CreateAnalysis() error = %v", err)
		}
	}
	b := analysisFor(orgB.ID, "b")
	if err := s.CreateAnalysis(ctx, b); err != nil {
		t.Fatalf("CreateAnalysis() error = %v", err)
	}

	list, err := s.ListAnalyses(ctx, orgA.ID)
	if err != nil {
		t.Fatalf("ListAnalyses() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListAnalyses(orgA) returned %d, want 3", len(list))
	}
	for _, a := range list {
		if a.OrganizationID != orgA.ID {
			t.Errorf("ListAnalyses(orgA) leaked analysis of %s", a.OrganizationID)
		}
	}
	if list[0].Filename != "a-2" {
		t.Errorf("ListAnalyses() first = %q, want most recent", list[0].Filename)
	}

	if _, err := s.GetAnalysis(ctx, orgA.ID, b.ID); !errors.Is(err, db.ErrAnalysisNotFound) {
		t.Errorf("GetAnalysis(cross-tenant) error = %v, want ErrAnalysisNotFound", err)
	}
	err = s.SetDeliverable(ctx, orgA.ID, b.ID, models.Deliverable{Type: models.DeliverableSpecGaps})
	if !errors.Is(err, db.ErrAnalysisNotFound) {
		t.Errorf("SetDeliverable(cross-tenant) error = %v, want ErrAnalysisNotFound", err)
	}

	counts, _ := s.CountAnalysesByOrganization(ctx)
	if counts["a"] != 3 || counts["b"] != 1 {
		t.Errorf("CountAnalysesByOrganization() = %v", counts)
	}
}

func TestSetDeliverable_ConcurrentReplace(t *testing.T) {
	s := New()
	ctx := context.Background()
	org := createOrg(t, s, "org")
	a := analysisFor(org.ID, "scope")
	if err := s.CreateAnalysis(ctx, a); err != nil {
		t.Fatalf("CreateAnalysis() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d := models.Deliverable{
				Type:               models.DeliverableExecutiveNarrative,
				Status:             models.StatusOK,
				ExecutiveNarrative: &models.ExecutiveNarrative{Narrative: fmt.Sprintf("v%d", n)},
			}
			if err := s.SetDeliverable(ctx, org.ID, a.ID, d); err != nil {
				t.Errorf("SetDeliverable() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.GetAnalysis(ctx, org.ID, a.ID)
	if len(got.Results.Deliverables) != 1 {
		t.Errorf("len(Deliverables) = %d, want 1", len(got.Results.Deliverables))
	}
	if err := got.Results.Deliverables[models.DeliverableExecutiveNarrative].Validate(); err != nil {
		t.Errorf("stored deliverable invalid: %v", err)
	}
}

func TestListLessons(t *testing.T) {
	s := New()
	ctx := context.Background()
	org := createOrg(t, s, "org")

	for _, l := range []models.Lesson{
		{OrganizationID: org.ID, Title: "bore", WorkType: "HDD/Bore"},
		{OrganizationID: org.ID, Title: "permit", WorkType: "Commissioning"},
	} {
		if err := s.CreateLesson(ctx, &l); err != nil {
			t.Fatalf("CreateLesson() error = %v", err)
		}
	}

	hdd, _ := s.ListLessons(ctx, org.ID, models.LessonFilter{WorkType: "HDD / Bore"})
	if len(hdd) != 1 || hdd[0].Title != "bore" {
		t.Errorf("ListLessons(HDD) = %+v", hdd)
	}

	s.DeleteLesson(org.ID, hdd[0].ID)
	all, _ := s.ListLessons(ctx, org.ID, models.LessonFilter{})
	if len(all) != 1 {
		t.Errorf("ListLessons() after delete = %d, want 1", len(all))
	}

	if err := s.CreateLesson(ctx, &models.Lesson{OrganizationID: uuid.New(), Title: "orphan"}); !errors.Is(err, db.ErrOrgNotFound) {
		t.Errorf("CreateLesson(unknown org) error = %v, want ErrOrgNotFound", err)
	}
}

func TestSeedDevData(t *testing.T) {
	s := New()
	ctx := context.Background()

	org, err := db.SeedDevData(ctx, s)
	if err != nil {
		t.Fatalf("SeedDevData() error = %v", err)
	}
	first, _ := s.ListLessons(ctx, org.ID, models.LessonFilter{})
	if len(first) == 0 {
		t.Fatal("SeedDevData() created no lessons")
	}

	if _, err := db.SeedDevData(ctx, s); err != nil {
		t.Fatalf("SeedDevData() second run error = %v", err)
	}
	second, _ := s.ListLessons(ctx, org.ID, models.LessonFilter{})
	if len(second) != len(first) {
		t.Errorf("SeedDevData() not idempotent: %d -> %d lessons", len(first), len(second))
	}
}
