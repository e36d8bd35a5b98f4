package models

import (
	"testing"
)

func TestParseRelevance(t *testing.T) {
	tests := []struct {
		in     string
		want   Relevance
		wantOK bool
	}{
		{"High", RelevanceHigh, true},
		{"high", RelevanceHigh, true},
		{" MEDIUM ", RelevanceMedium, true},
		{"med", RelevanceMedium, true},
		{"Low", RelevanceLow, true},
		{"Critical", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRelevance(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseRelevance(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAnalysisResults_GroupedMatches(t *testing.T) {
	r := AnalysisResults{
		Matches: []Match{
			{LessonID: 1, Relevance: RelevanceLow},
			{LessonID: 2, Relevance: RelevanceHigh},
			{LessonID: 3, Relevance: RelevanceMedium},
			{LessonID: 4, Relevance: RelevanceHigh},
		},
	}

	groups := r.GroupedMatches()
	high := groups[RelevanceHigh]
	if len(high) != 2 || high[0].LessonID != 2 || high[1].LessonID != 4 {
		t.Errorf("high group = %+v, want lessons 2 and 4 in storage order", high)
	}
	if len(groups[RelevanceMedium]) != 1 || len(groups[RelevanceLow]) != 1 {
		t.Errorf("groups = %+v", groups)
	}
}

func TestAnalysisResults_CloneIsDeep(t *testing.T) {
	r := AnalysisResults{
		Summary:         "summary",
		Matches:         []Match{{LessonID: 1, Relevance: RelevanceHigh, Reason: "why"}},
		Gaps:            []string{"gap"},
		Recommendations: []string{"rec"},
		Deliverables: map[DeliverableType]Deliverable{
			DeliverableExecutiveNarrative: {
				Type:               DeliverableExecutiveNarrative,
				Status:             StatusOK,
				ExecutiveNarrative: &ExecutiveNarrative{Narrative: "text", KeyPoints: []string{"a"}},
			},
		},
	}

	c := r.Clone()
	c.Matches[0].Reason = "changed"
	c.Gaps[0] = "changed"
	c.Deliverables[DeliverableExecutiveNarrative].ExecutiveNarrative.KeyPoints[0] = "changed"

	if r.Matches[0].Reason != "why" {
		t.Error("Clone() shares the matches slice")
	}
	if r.Gaps[0] != "gap" {
		t.Error("Clone() shares the gaps slice")
	}
	if r.Deliverables[DeliverableExecutiveNarrative].ExecutiveNarrative.KeyPoints[0] != "a" {
		t.Error("Clone() shares deliverable payloads")
	}
}

func TestSOWAnalysis_Summary(t *testing.T) {
	wt := "HDD/Bore"
	a := &SOWAnalysis{
		Filename:       "scope.docx",
		WorkTypeFilter: &wt,
		Results:        AnalysisResults{Summary: "overview", Matches: []Match{{LessonID: 7}}},
	}

	s := a.Summary()
	if s.WorkType != "HDD/Bore" || s.ResultsSummary != "overview" || s.MatchCount != 1 {
		t.Errorf("Summary() = %+v", s)
	}

	clone := a.Clone()
	*clone.WorkTypeFilter = "Other"
	if a.WorkType() != "HDD/Bore" {
		t.Error("Clone() shares the work type pointer")
	}
}
