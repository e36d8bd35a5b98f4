// Package memstore is an in-memory analysis store and lesson corpus for
// development and tests. It honors the same contracts as the Postgres store:
// deep copies in and out, tenant-scoped reads, atomic deliverable replace.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"sowmatch/internal/db"
	"sowmatch/internal/models"
)

// Store holds organizations, lessons and analyses in memory.
type Store struct {
	mu           sync.RWMutex
	orgs         map[uuid.UUID]*models.Organization
	lessons      map[uuid.UUID][]models.Lesson
	analyses     map[uuid.UUID]*models.SOWAnalysis
	byOrg        map[uuid.UUID][]uuid.UUID // creation order
	nextLessonID int64
	now          func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		orgs:         make(map[uuid.UUID]*models.Organization),
		lessons:      make(map[uuid.UUID][]models.Lesson),
		analyses:     make(map[uuid.UUID]*models.SOWAnalysis),
		byOrg:        make(map[uuid.UUID][]uuid.UUID),
		nextLessonID: 1,
		now:          time.Now,
	}
}

// UpsertOrganization creates or updates an organization by slug.
func (s *Store) UpsertOrganization(_ context.Context, org *models.Organization) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for _, existing := range s.orgs {
		if existing.Slug == org.Slug {
			existing.Name = org.Name
			existing.ProfileText = org.ProfileText
			existing.UpdatedAt = now
			out := *existing
			return &out, nil
		}
	}

	created := *org
	created.ID = uuid.New()
	created.CreatedAt = now
	created.UpdatedAt = now
	s.orgs[created.ID] = &created
	out := created
	return &out, nil
}

// GetOrganizationByID retrieves an organization by ID.
func (s *Store) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, db.ErrOrgNotFound
	}
	out := *org
	return &out, nil
}

// GetOrganizationBySlug retrieves an organization by slug.
func (s *Store) GetOrganizationBySlug(_ context.Context, slug string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, org := range s.orgs {
		if org.Slug == slug {
			out := *org
			return &out, nil
		}
	}
	return nil, db.ErrOrgNotFound
}

// CreateLesson adds a lesson and assigns its ID.
func (s *Store) CreateLesson(_ context.Context, l *models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[l.OrganizationID]; !ok {
		return db.ErrOrgNotFound
	}
	if l.ID == 0 {
		l.ID = s.nextLessonID
	}
	s.nextLessonID = max(s.nextLessonID, l.ID) + 1
	if l.Severity == "" {
		l.Severity = models.SeverityMedium
	}
	now := s.now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	s.lessons[l.OrganizationID] = append(s.lessons[l.OrganizationID], *l)
	return nil
}

// DeleteLesson removes a lesson, as the lesson CRUD service would.
func (s *Store) DeleteLesson(orgID uuid.UUID, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[orgID] = slices.DeleteFunc(s.lessons[orgID], func(l models.Lesson) bool { return l.ID == id })
}

// ListLessons returns a snapshot of an organization's lessons ordered by id.
func (s *Store) ListLessons(_ context.Context, orgID uuid.UUID, filter models.LessonFilter) ([]models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Lesson{}
	for _, l := range s.lessons[orgID] {
		if filter.WorkType != "" && !l.MatchesWorkType(filter.WorkType) {
			continue
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b models.Lesson) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// CreateAnalysis stores a deep copy of a and sets its ID and CreatedAt.
func (s *Store) CreateAnalysis(_ context.Context, a *models.SOWAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[a.OrganizationID]; !ok {
		return db.ErrOrgNotFound
	}

	a.ID = uuid.New()
	a.CreatedAt = s.now().UTC()
	s.analyses[a.ID] = a.Clone()
	s.byOrg[a.OrganizationID] = append(s.byOrg[a.OrganizationID], a.ID)
	return nil
}

// GetAnalysis returns a deep copy of an organization's analysis.
func (s *Store) GetAnalysis(_ context.Context, orgID, id uuid.UUID) (*models.SOWAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok || a.OrganizationID != orgID {
		return nil, db.ErrAnalysisNotFound
	}
	return a.Clone(), nil
}

// ListAnalyses returns an organization's analyses, most recent first.
func (s *Store) ListAnalyses(_ context.Context, orgID uuid.UUID) ([]models.SOWAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOrg[orgID]
	out := make([]models.SOWAnalysis, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *s.analyses[ids[i]].Clone())
	}
	return out, nil
}

// SetDeliverable replaces results.deliverables[type] under the write lock.
func (s *Store) SetDeliverable(_ context.Context, orgID, id uuid.UUID, d models.Deliverable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok || a.OrganizationID != orgID {
		return db.ErrAnalysisNotFound
	}
	if a.Results.Deliverables == nil {
		a.Results.Deliverables = make(map[models.DeliverableType]models.Deliverable)
	}
	a.Results.Deliverables[d.Type] = d.Clone()
	return nil
}

// CountAnalysesByOrganization returns the number of analyses per organization slug.
func (s *Store) CountAnalysesByOrganization(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64, len(s.orgs))
	for id, org := range s.orgs {
		counts[org.Slug] = int64(len(s.byOrg[id]))
	}
	return counts, nil
}
