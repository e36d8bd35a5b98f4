// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"sowmatch/internal/db"
	"sowmatch/internal/models"
	"sowmatch/internal/oracle"
)

// TestDB creates a test database connection and returns a cleanup function.
// The test is skipped unless TEST_DATABASE_URL is set.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database)
	cleanup := func() {
		cleanupTestData(ctx, database)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, database *db.DB) {
	// Delete in order to respect foreign keys
	database.Pool.Exec(ctx, "DELETE FROM sow_analyses")
	database.Pool.Exec(ctx, "DELETE FROM lessons")
	database.Pool.Exec(ctx, "DELETE FROM organizations")
}

// CreateTestOrg creates a test organization and returns it.
func CreateTestOrg(t *testing.T, database *db.DB, name, slug string) *models.Organization {
	t.Helper()

	org, err := database.UpsertOrganization(context.Background(), &models.Organization{
		Name:        name,
		Slug:        slug,
		ProfileText: "QA/QC program with NDE oversight and a welding procedure qualification process.",
	})
	if err != nil {
		t.Fatalf("failed to create test org: %v", err)
	}
	return org
}

// PipelineLessons returns a small corpus: one HDD lesson and one
// commissioning lesson.
func PipelineLessons(orgID uuid.UUID) []models.Lesson {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.Lesson{
		{
			ID:             101,
			OrganizationID: orgID,
			Title:          "Drilling fluid inadvertent return under river",
			Description:    "Frac-out during the pilot hole released bentonite into the river.",
			RootCause:      "Annular pressure not monitored through the gravel layer.",
			Recommendation: "Require continuous annular pressure monitoring and a frac-out contingency plan.",
			Discipline:     "Construction",
			WorkType:       "HDD/Bore",
			Phase:          "Construction",
			Severity:       models.SeverityHigh,
			Project:        "Red River Crossing",
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             202,
			OrganizationID: orgID,
			Title:          "Late hydrotest water disposal permit",
			Description:    "Commissioning slipped two weeks waiting on a discharge permit.",
			RootCause:      "Permit application was not started until mechanical completion.",
			Recommendation: "File discharge permits during detailed design.",
			Discipline:     "Environmental",
			WorkType:       "Commissioning",
			Phase:          "Commissioning",
			Severity:       models.SeverityLow,
			Project:        "Station 4 Expansion",
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}

// StubOracle returns canned replies per operation and records every request.
type StubOracle struct {
	mu       sync.Mutex
	replies  map[string]string
	errs     map[string]error
	requests []oracle.Request
	calls    atomic.Int64

	// Delay holds each call until it elapses or the context ends.
	Delay time.Duration
	// Gate, when set, blocks each call until it is closed.
	Gate chan struct{}
}

// NewStubOracle creates a stub with no replies configured.
func NewStubOracle() *StubOracle {
	return &StubOracle{replies: map[string]string{}, errs: map[string]error{}}
}

// Reply sets the text returned for operation.
func (s *StubOracle) Reply(operation, text string) *StubOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[operation] = text
	delete(s.errs, operation)
	return s
}

// Fail sets the error returned for operation.
func (s *StubOracle) Fail(operation string, err error) *StubOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[operation] = err
	return s
}

// Complete implements oracle.Oracle.
func (s *StubOracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.requests = append(s.requests, req)
	text, err := s.replies[req.Operation], s.errs[req.Operation]
	gate, delay := s.Gate, s.Delay
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// Calls returns the number of Complete calls.
func (s *StubOracle) Calls() int {
	return int(s.calls.Load())
}

// Requests returns a copy of the recorded requests.
func (s *StubOracle) Requests() []oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]oracle.Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *StubOracle) LastRequest() oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return oracle.Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Canned oracle replies used across packages.
const (
	AnalysisReply = `{
  "summary": "24-inch mainline with an HDD river crossing in arctic conditions.",
  "matches": [
    {"lessonId": 101, "relevance": "High", "reason": "HDD crossing under a river is explicitly in scope."}
  ],
  "gaps": ["Cold weather welding preheat"],
  "recommendations": ["Monitor annular pressure on every bore", "Stage heated weld shacks"]
}`

	RiskRegisterReply = `{
  "summary": "Two quality risks dominate the crossing.",
  "risks": [
    {"id": "QR-001", "category": "Construction", "description": "Inadvertent return during pilot hole", "likelihood": "Likely", "consequence": "Major", "risk_level": "High", "mitigation": "Annular pressure monitoring", "owner": "HDD Superintendent", "source_lessons": [101], "residual_risk": "Medium"},
    {"id": "QR-002", "category": "Welding", "description": "Preheat loss in cold weather", "likelihood": "Possible", "consequence": "Moderate", "risk_level": "Severe", "mitigation": "Heated enclosures", "owner": "Welding Inspector", "source_lessons": ["Gap-based risk"], "residual_risk": "Low"}
  ]
}`

	StaffingReply = `{
  "summary": "Two spreads over 18 months with arctic provisions.",
  "positions": [
    {"title": "Chief Welding Inspector", "count": 2, "duration_months": 18, "phase": "Mainline", "justification": "One per spread"},
    {"title": "Coating Inspector", "count": 4, "duration_months": 24, "phase": "Mainline", "justification": "Cold weather coating cure checks"},
    {"title": "HDD Inspector", "count": 1, "duration_months": 6, "phase": "Crossings", "justification": "Lesson 101"}
  ],
  "total_headcount": 3,
  "peak_headcount": 9,
  "assumptions": ["Two 10-hour shifts"],
  "cost_estimate": {"note": "ROM", "monthly_burn_rate": 150000, "total_estimated": 2700000, "basis": "Blended inspector rates"},
  "lessons_impact": ["Lesson 101 adds a dedicated HDD inspector"]
}`

	SpecGapsReply = `{
  "summary": "One specification gap.",
  "items": [
    {"area": "HDD", "reference": "Section 5.2", "risk": "No annular pressure limits", "recommendation": "Add limits", "source_lessons": [101]}
  ]
}`

	NarrativeReply = `{
  "headline": "Crossing risk is manageable with monitoring",
  "narrative": "The scope repeats the conditions behind one prior inadvertent return.",
  "key_points": ["Monitor annular pressure"]
}`
)
