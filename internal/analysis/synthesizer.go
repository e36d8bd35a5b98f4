// Package analysis turns a scope of work and a lessons corpus into a
// classified applicability analysis. All relevance judgment is delegated to
// the oracle; this package builds the prompt and validates the reply.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
	"sowmatch/internal/oracle"
	"sowmatch/internal/validation"
)

// DefaultMaxSOWChars bounds the scope text embedded in the prompt.
const DefaultMaxSOWChars = 8000

// Synthesizer runs analyses against an oracle.
type Synthesizer struct {
	oracle      oracle.Oracle
	logger      *slog.Logger
	maxSOWChars int
}

// NewSynthesizer creates a synthesizer. maxSOWChars <= 0 selects the default.
func NewSynthesizer(o oracle.Oracle, logger *slog.Logger, maxSOWChars int) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSOWChars <= 0 {
		maxSOWChars = DefaultMaxSOWChars
	}
	return &Synthesizer{oracle: o, logger: logger, maxSOWChars: maxSOWChars}
}

// Input is one analysis request. Lessons is a point-in-time corpus snapshot.
type Input struct {
	SOWText        string
	Lessons        []models.Lesson
	Profile        models.OrganizationProfile
	WorkTypeFilter string
}

type reply struct {
	Summary         string       `json:"summary"`
	Matches         []replyMatch `json:"matches"`
	Gaps            []string     `json:"gaps"`
	Recommendations []string     `json:"recommendations"`
}

type replyMatch struct {
	LessonID  models.SourceRef `json:"lessonId"`
	Relevance string           `json:"relevance"`
	Reason    string           `json:"reason"`
}

// Analyze runs one analysis. It has no side effects beyond the oracle call.
func (s *Synthesizer) Analyze(ctx context.Context, in Input) (*models.AnalysisResults, error) {
	const op = "analysis.analyze"

	sowText := strings.TrimSpace(in.SOWText)
	if sowText == "" {
		return nil, errs.E(errs.InvalidInput, op, "sow_text is required")
	}
	workType := strings.TrimSpace(in.WorkTypeFilter)

	candidates, others := SplitCandidates(in.Lessons, workType)

	prompt, err := buildPrompt(validation.Truncate(sowText, s.maxSOWChars), candidates, others, workType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	text, err := s.oracle.Complete(ctx, oracle.Request{
		Operation:  "analyze",
		System:     buildSystem(in.Profile, workType),
		Prompt:     prompt,
		SchemaHint: schemaHint,
	})
	if err != nil {
		return nil, err
	}

	var r reply
	if err := oracle.DecodeJSON(op, text, &r); err != nil {
		return nil, err
	}

	results := s.normalize(r, candidates, len(in.Lessons) == 0)
	s.logger.Info("analysis synthesized",
		"corpus", len(in.Lessons),
		"candidates", len(candidates),
		"matches", len(results.Matches),
		"work_type", workType,
	)
	return results, nil
}

// SplitCandidates partitions lessons into match candidates and context-only
// lessons. Without a filter every lesson is a candidate.
func SplitCandidates(lessons []models.Lesson, workType string) (candidates, others []models.Lesson) {
	if strings.TrimSpace(workType) == "" {
		return lessons, nil
	}
	for _, l := range lessons {
		if l.MatchesWorkType(workType) {
			candidates = append(candidates, l)
		} else {
			others = append(others, l)
		}
	}
	return candidates, others
}

func (s *Synthesizer) normalize(r reply, candidates []models.Lesson, emptyCorpus bool) *models.AnalysisResults {
	pool := models.IndexLessons(candidates)

	results := &models.AnalysisResults{
		Summary:         strings.TrimSpace(r.Summary),
		Matches:         []models.Match{},
		Gaps:            nonBlank(r.Gaps),
		Recommendations: nonBlank(r.Recommendations),
	}

	position := make(map[int64]int)
	for _, m := range r.Matches {
		id, ok := m.LessonID.LessonID()
		if !ok {
			s.logger.Debug("dropping match with unresolvable lesson id", "lesson_id", string(m.LessonID))
			continue
		}
		if _, ok := pool[id]; !ok {
			s.logger.Debug("dropping match outside candidate pool", "lesson_id", id)
			continue
		}
		rel, ok := models.ParseRelevance(m.Relevance)
		if !ok {
			rel = models.RelevanceLow
		}
		match := models.Match{LessonID: id, Relevance: rel, Reason: strings.TrimSpace(m.Reason)}

		if i, seen := position[id]; seen {
			if rel.Rank() > results.Matches[i].Relevance.Rank() {
				results.Matches[i] = match
			}
			continue
		}
		position[id] = len(results.Matches)
		results.Matches = append(results.Matches, match)
	}

	if emptyCorpus {
		results.Gaps = []string{}
	}
	if results.Summary == "" {
		results.Summary = fallbackSummary(len(candidates), len(results.Matches))
	}
	return results
}

func fallbackSummary(candidates, matches int) string {
	if candidates == 0 {
		return "No lessons learned were available to compare against this scope of work."
	}
	return fmt.Sprintf("%d of %d candidate lessons learned apply to this scope of work.", matches, candidates)
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
