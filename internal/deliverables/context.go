package deliverables

import (
	"encoding/json"
	"fmt"
	"strings"

	"sowmatch/internal/models"
	"sowmatch/internal/validation"
)

// Prompt size bounds for deliverable generation.
const (
	maxSOWChars     = 6000
	maxProfileChars = 4000
)

// lessonDetail is a matched lesson enriched from the current corpus.
type lessonDetail struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	RootCause      string `json:"root_cause,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	WorkType       string `json:"work_type,omitempty"`
	Phase          string `json:"phase,omitempty"`
	Discipline     string `json:"discipline,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Environment    string `json:"environment,omitempty"`
	Project        string `json:"project,omitempty"`
	Location       string `json:"location,omitempty"`
	Keywords       string `json:"keywords,omitempty"`
}

// matchDetail is one analysis match as shown to the oracle. Lesson is nil
// when the lesson was deleted after the analysis ran.
type matchDetail struct {
	LessonID  int64         `json:"lessonId"`
	Relevance string        `json:"relevance"`
	Reason    string        `json:"reason"`
	Lesson    *lessonDetail `json:"lesson,omitempty"`
}

// analysisContext is the shared input of every deliverable prompt.
type analysisContext struct {
	SOWText         string
	WorkType        string
	Summary         string
	Matches         []matchDetail
	Gaps            []string
	Recommendations []string
	Profile         models.OrganizationProfile
}

func buildContext(a *models.SOWAnalysis, lessons []models.Lesson, profile models.OrganizationProfile) analysisContext {
	idx := models.IndexLessons(lessons)

	matches := make([]matchDetail, 0, len(a.Results.Matches))
	for _, m := range a.Results.Matches {
		md := matchDetail{LessonID: m.LessonID, Relevance: string(m.Relevance), Reason: m.Reason}
		if l, ok := idx[m.LessonID]; ok {
			md.Lesson = &lessonDetail{
				ID:             l.ID,
				Title:          l.Title,
				Description:    validation.Truncate(l.Description, 500),
				RootCause:      validation.Truncate(l.RootCause, 300),
				Recommendation: validation.Truncate(l.Recommendation, 300),
				WorkType:       l.WorkType,
				Phase:          l.Phase,
				Discipline:     l.Discipline,
				Severity:       l.Severity,
				Environment:    l.Environment,
				Project:        l.Project,
				Location:       l.Location,
				Keywords:       validation.Truncate(l.Keywords, 100),
			}
		}
		matches = append(matches, md)
	}

	return analysisContext{
		SOWText:         validation.Truncate(a.SOWText, maxSOWChars),
		WorkType:        a.WorkType(),
		Summary:         a.Results.Summary,
		Matches:         matches,
		Gaps:            a.Results.Gaps,
		Recommendations: a.Results.Recommendations,
		Profile:         profile,
	}
}

// writeScope writes the scope of work, matched lessons and optionally the
// identified gaps.
func (c analysisContext) writeScope(b *strings.Builder, withGaps bool) error {
	fmt.Fprintf(b, "SCOPE OF WORK:\n%s\n\n", c.SOWText)
	if c.WorkType != "" {
		fmt.Fprintf(b, "SCOPE WORK TYPE: %s\n\n", c.WorkType)
	}
	if c.Summary != "" {
		fmt.Fprintf(b, "ANALYSIS SUMMARY:\n%s\n\n", c.Summary)
	}

	matchJSON, err := json.MarshalIndent(c.Matches, "", " ")
	if err != nil {
		return fmt.Errorf("failed to encode matched lessons: %w", err)
	}
	fmt.Fprintf(b, "MATCHED LESSONS LEARNED (%d lessons):\n%s\n\n", len(c.Matches), matchJSON)

	if withGaps {
		gapJSON, err := json.MarshalIndent(nonNil(c.Gaps), "", " ")
		if err != nil {
			return fmt.Errorf("failed to encode gaps: %w", err)
		}
		fmt.Fprintf(b, "IDENTIFIED GAPS (risk areas with no historical lessons):\n%s\n\n", gapJSON)
	}
	return nil
}

// writeProfile writes the organization's existing programs, if any.
func (c analysisContext) writeProfile(b *strings.Builder, instruction string) {
	if strings.TrimSpace(c.Profile.ProfileText) == "" {
		return
	}
	b.WriteString("ORGANIZATION CONTEXT:\n")
	if c.Profile.Name != "" {
		fmt.Fprintf(b, "Organization: %s\n", c.Profile.Name)
	}
	fmt.Fprintf(b, "%s\n%s\n\n", instruction, validation.Truncate(c.Profile.ProfileText, maxProfileChars))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
