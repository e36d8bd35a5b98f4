package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relevance is how strongly a lesson applies to a scope of work.
type Relevance string

// Relevance buckets, strongest first.
const (
	RelevanceHigh   Relevance = "High"
	RelevanceMedium Relevance = "Medium"
	RelevanceLow    Relevance = "Low"
)

// Relevances lists the buckets in presentation order.
var Relevances = []Relevance{RelevanceHigh, RelevanceMedium, RelevanceLow}

// ParseRelevance canonicalizes a relevance label. The bool is false for
// labels outside the three buckets.
func ParseRelevance(s string) (Relevance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RelevanceHigh, true
	case "medium", "med":
		return RelevanceMedium, true
	case "low":
		return RelevanceLow, true
	}
	return "", false
}

// Rank orders buckets; higher is stronger.
func (r Relevance) Rank() int {
	switch r {
	case RelevanceHigh:
		return 3
	case RelevanceMedium:
		return 2
	case RelevanceLow:
		return 1
	}
	return 0
}

// Match ties a lesson to the analyzed scope.
type Match struct {
	LessonID  int64     `json:"lessonId"`
	Relevance Relevance `json:"relevance"`
	Reason    string    `json:"reason"`
}

// AnalysisResults is the structured outcome of one analysis run.
type AnalysisResults struct {
	Summary         string                          `json:"summary"`
	Matches         []Match                         `json:"matches"`
	Gaps            []string                        `json:"gaps"`
	Recommendations []string                        `json:"recommendations"`
	Deliverables    map[DeliverableType]Deliverable `json:"deliverables,omitempty"`
}

// Clone returns a deep copy of the results.
func (r *AnalysisResults) Clone() AnalysisResults {
	out := AnalysisResults{
		Summary:         r.Summary,
		Matches:         append([]Match{}, r.Matches...),
		Gaps:            append([]string{}, r.Gaps...),
		Recommendations: append([]string{}, r.Recommendations...),
	}
	if len(r.Deliverables) > 0 {
		out.Deliverables = make(map[DeliverableType]Deliverable, len(r.Deliverables))
		for k, d := range r.Deliverables {
			out.Deliverables[k] = d.Clone()
		}
	}
	return out
}

// GroupedMatches returns matches bucketed High, Medium, Low. Within a bucket
// the stored insertion order is kept.
func (r *AnalysisResults) GroupedMatches() map[Relevance][]Match {
	groups := make(map[Relevance][]Match, len(Relevances))
	for _, m := range r.Matches {
		groups[m.Relevance] = append(groups[m.Relevance], m)
	}
	return groups
}

// SOWAnalysis is a persisted analysis record. Only Results.Deliverables
// changes after creation.
type SOWAnalysis struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	Filename       string          `json:"filename"`
	WorkTypeFilter *string         `json:"work_type,omitempty"`
	SOWText        string          `json:"sow_text"`
	CorpusSize     int             `json:"corpus_size"`
	Results        AnalysisResults `json:"results"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Clone returns a deep copy of the analysis.
func (a *SOWAnalysis) Clone() *SOWAnalysis {
	out := *a
	if a.WorkTypeFilter != nil {
		wt := *a.WorkTypeFilter
		out.WorkTypeFilter = &wt
	}
	out.Results = a.Results.Clone()
	return &out
}

// WorkType returns the work type filter or "".
func (a *SOWAnalysis) WorkType() string {
	if a.WorkTypeFilter == nil {
		return ""
	}
	return *a.WorkTypeFilter
}

// Summary returns the history-list view of the analysis.
func (a *SOWAnalysis) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:             a.ID,
		Filename:       a.Filename,
		WorkType:       a.WorkType(),
		CreatedAt:      a.CreatedAt,
		ResultsSummary: a.Results.Summary,
		MatchCount:     len(a.Results.Matches),
	}
}
