package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"sowmatch/internal/models"
	"sowmatch/internal/validation"
)

const systemPrompt = `You are a senior quality and construction management analyst for pipeline and energy construction projects. You have access to a lessons learned database and a scope of work document.

Your task: cross-reference the scope of work against the lessons learned database and identify which lessons are applicable to the upcoming work. Consider work type, environmental conditions, location, phase of work, discipline overlap, similar materials, methods or equipment, seasonal parallels, and regulatory or code similarities.

Relevance rubric:
- High: the lesson's failure mode is directly implicated by stated scope elements.
- Medium: plausible exposure given the scope category, but not explicitly named.
- Low: generic best-practice relevance only.

Be thorough but practical. A senior Quality Director will use this to prepare for the work. Keep every field to 1-2 sentences.`

const schemaHint = `{
  "summary": "Brief 2-3 sentence overview of the scope and key risk areas",
  "matches": [
    {"lessonId": <candidate lesson id as an integer>, "relevance": "High" | "Medium" | "Low", "reason": "why this lesson applies"}
  ],
  "gaps": ["risk areas in the scope where no lessons learned exist"],
  "recommendations": ["top 3-5 actionable recommendations"]
}`

// lessonDigest is the compact per-lesson view sent to the oracle.
type lessonDigest struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Discipline     string `json:"discipline,omitempty"`
	WorkType       string `json:"workType,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// contextDigest describes a lesson excluded by the work type filter.
type contextDigest struct {
	Title      string `json:"title"`
	Discipline string `json:"discipline,omitempty"`
	WorkType   string `json:"workType,omitempty"`
}

func digest(l models.Lesson) lessonDigest {
	return lessonDigest{
		ID:             l.ID,
		Title:          l.Title,
		Discipline:     l.Discipline,
		WorkType:       l.WorkType,
		Severity:       l.Severity,
		Recommendation: validation.Truncate(l.Recommendation, 200),
	}
}

// buildSystem adds organization and work type constraints to the base prompt.
func buildSystem(profile models.OrganizationProfile, workType string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)

	if strings.TrimSpace(profile.ProfileText) != "" {
		b.WriteString("\n\nORGANIZATION CONTEXT:\n")
		if profile.Name != "" {
			fmt.Fprintf(&b, "Organization: %s\n", profile.Name)
		}
		b.WriteString("The following programs, procedures, and systems are ALREADY IN PLACE. Do NOT recommend establishing any of them. Focus on how to apply them to this scope, or where they need adapting.\n\n")
		b.WriteString(validation.Truncate(profile.ProfileText, 6000))
	}

	if workType != "" {
		fmt.Fprintf(&b, "\n\nSCOPE WORK TYPE: %s\n", workType)
		b.WriteString("Only lessons listed under CANDIDATE LESSONS may appear in matches. Lessons under CONTEXT-ONLY LESSONS belong to other work types; use them only to inform gaps and recommendations. When in doubt whether a candidate applies, exclude it.")
	}
	return b.String()
}

// buildPrompt renders the user message.
func buildPrompt(sowText string, candidates, others []models.Lesson, workType string) (string, error) {
	digests := make([]lessonDigest, 0, len(candidates))
	for _, l := range candidates {
		digests = append(digests, digest(l))
	}
	candidateJSON, err := json.MarshalIndent(digests, "", " ")
	if err != nil {
		return "", fmt.Errorf("failed to encode lesson digest: %w", err)
	}

	var b strings.Builder
	if workType != "" {
		fmt.Fprintf(&b, "SCOPE WORK TYPE: %s\n\n", workType)
	}
	fmt.Fprintf(&b, "SCOPE OF WORK:\n%s\n\n", sowText)
	fmt.Fprintf(&b, "CANDIDATE LESSONS (%d entries):\n%s\n", len(digests), candidateJSON)

	if len(others) > 0 {
		refs := make([]contextDigest, 0, len(others))
		for _, l := range others {
			refs = append(refs, contextDigest{Title: l.Title, Discipline: l.Discipline, WorkType: l.WorkType})
		}
		otherJSON, err := json.MarshalIndent(refs, "", " ")
		if err != nil {
			return "", fmt.Errorf("failed to encode context lessons: %w", err)
		}
		fmt.Fprintf(&b, "\nCONTEXT-ONLY LESSONS (%d entries, never match these):\n%s\n", len(refs), otherJSON)
	}
	return b.String(), nil
}
