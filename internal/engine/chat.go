package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
	"sowmatch/internal/oracle"
	"sowmatch/internal/validation"
)

const chatTokens = 2000

type chatLesson struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"desc"`
	RootCause      string `json:"rootCause,omitempty"`
	Recommendation string `json:"rec,omitempty"`
	WorkType       string `json:"workType,omitempty"`
	Discipline     string `json:"discipline,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Environment    string `json:"env,omitempty"`
}

// Chat answers an analyst question with the organization's corpus as context.
func (s *Service) Chat(ctx context.Context, orgID uuid.UUID, message string, history []models.ChatMessage) (string, error) {
	const op = "engine.chat"

	if valid, msg := validation.ValidateChat(message, history); !valid {
		return "", errs.E(errs.InvalidInput, op, "%s", msg)
	}

	org, err := s.organizationByID(ctx, op, orgID)
	if err != nil {
		return "", err
	}
	lessons, err := s.corpus.ListLessons(ctx, orgID, models.LessonFilter{})
	if err != nil {
		return "", fmt.Errorf("%s: failed to read corpus: %w", op, err)
	}

	system, err := chatSystem(lessons, org.Profile())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	msgs := make([]oracle.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, oracle.Message{Role: m.Role, Content: m.Content})
	}

	text, err := s.oracle.Complete(ctx, oracle.Request{
		Operation: "chat",
		System:    system,
		Prompt:    strings.TrimSpace(message),
		History:   msgs,
		MaxTokens: chatTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func chatSystem(lessons []models.Lesson, profile models.OrganizationProfile) (string, error) {
	digest := make([]chatLesson, 0, len(lessons))
	for _, l := range lessons {
		digest = append(digest, chatLesson{
			ID:             l.ID,
			Title:          l.Title,
			Description:    validation.Truncate(l.Description, 200),
			RootCause:      validation.Truncate(l.RootCause, 200),
			Recommendation: validation.Truncate(l.Recommendation, 200),
			WorkType:       l.WorkType,
			Discipline:     l.Discipline,
			Severity:       l.Severity,
			Environment:    l.Environment,
		})
	}
	corpus, err := json.MarshalIndent(digest, "", " ")
	if err != nil {
		return "", fmt.Errorf("failed to encode lessons: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a senior quality and construction management analyst helping manage a lessons learned database for pipeline and energy construction. The database holds %d lessons.\n\n", len(lessons))
	fmt.Fprintf(&b, "Current database:\n%s\n\n", corpus)
	b.WriteString("Help the user find lessons for specific situations, suggest lessons worth capturing, spot recurring root causes and high-risk areas, draft lesson content, and identify gaps in the database.\n")
	if strings.TrimSpace(profile.ProfileText) != "" {
		fmt.Fprintf(&b, "\nThe organization already has established programs. Do not recommend creating programs that already exist:\n%s\n", validation.Truncate(profile.ProfileText, 4000))
	}
	b.WriteString("\nBe direct and field-practical. The reader is a senior Quality Director.")
	return b.String(), nil
}
