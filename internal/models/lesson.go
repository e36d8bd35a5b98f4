package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity constants
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// Lesson is a recorded construction or quality incident. Lessons are owned by
// the lesson CRUD subsystem; the engine only reads them.
type Lesson struct {
	ID             int64     `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RootCause      string    `json:"root_cause"`
	Recommendation string    `json:"recommendation"`
	Impact         string    `json:"impact"`
	Discipline     string    `json:"discipline"`
	WorkType       string    `json:"work_type"`
	Phase          string    `json:"phase"`
	Severity       string    `json:"severity"`
	Environment    string    `json:"environment"`
	Project        string    `json:"project"`
	Location       string    `json:"location"`
	Keywords       string    `json:"keywords"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LessonFilter narrows a corpus read. Zero value reads the whole corpus.
type LessonFilter struct {
	WorkType string
}

// MatchesWorkType reports whether the lesson's work type equals wt, ignoring
// case and whitespace ("HDD / Bore" matches "HDD/Bore").
func (l *Lesson) MatchesWorkType(wt string) bool {
	return NormalizeWorkType(l.WorkType) == NormalizeWorkType(wt)
}

// NormalizeWorkType lowercases a work type and strips all whitespace.
func NormalizeWorkType(wt string) string {
	return strings.ToLower(strings.Join(strings.Fields(wt), ""))
}

// LessonIndex maps lesson IDs to lessons.
type LessonIndex map[int64]Lesson

// IndexLessons builds a LessonIndex from a corpus snapshot.
func IndexLessons(lessons []Lesson) LessonIndex {
	idx := make(LessonIndex, len(lessons))
	for _, l := range lessons {
		idx[l.ID] = l
	}
	return idx
}
