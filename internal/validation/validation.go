package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"sowmatch/internal/models"
)

// Input limits
const (
	MaxSOWChars      = 500000
	MaxWorkTypeChars = 100
	MaxFilenameChars = 255
	MaxChatChars     = 5000
	MaxChatHistory   = 40
)

// ValidateSOWText checks that scope text is present after trimming and within limits.
func ValidateSOWText(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, "sow_text is required"
	}
	if utf8.RuneCountInString(trimmed) > MaxSOWChars {
		return false, fmt.Sprintf("sow_text must be at most %d characters", MaxSOWChars)
	}
	return true, ""
}

// ValidateWorkType checks an optional work type filter.
func ValidateWorkType(workType string) (bool, string) {
	if utf8.RuneCountInString(workType) > MaxWorkTypeChars {
		return false, fmt.Sprintf("work_type must be at most %d characters", MaxWorkTypeChars)
	}
	return true, ""
}

// ValidateFilename checks an optional SOW filename.
func ValidateFilename(filename string) (bool, string) {
	if utf8.RuneCountInString(filename) > MaxFilenameChars {
		return false, fmt.Sprintf("filename must be at most %d characters", MaxFilenameChars)
	}
	return true, ""
}

// ValidateDeliverableType checks a deliverable type name.
func ValidateDeliverableType(t string) (bool, string) {
	if models.DeliverableType(t).Valid() {
		return true, ""
	}
	names := make([]string, 0, len(models.DeliverableTypes))
	for _, dt := range models.DeliverableTypes {
		names = append(names, string(dt))
	}
	slices.Sort(names)
	return false, "invalid deliverable_type. Must be one of: " + strings.Join(names, ", ")
}

// NormalizeStaffingParams applies defaults and validates staffing parameters in place.
func NormalizeStaffingParams(p *models.StaffingParams) (bool, string) {
	if p.NumSpreads == nil {
		one := 1
		p.NumSpreads = &one
	}
	if *p.NumSpreads < 1 {
		return false, "num_spreads must be at least 1"
	}
	if p.FacilitiesCount < 0 {
		return false, "facilities_count must not be negative"
	}
	if p.WeldCount != nil && *p.WeldCount < 0 {
		return false, "weld_count must not be negative"
	}
	if p.PipelineMileage != nil && *p.PipelineMileage < 0 {
		return false, "pipeline_mileage must not be negative"
	}
	if p.DurationMonths != nil && *p.DurationMonths < 1 {
		return false, "duration_months must be at least 1"
	}

	p.PipeDiameter = strings.TrimSpace(p.PipeDiameter)
	if p.PipeDiameter != "" && !slices.Contains(models.PipeDiameters, p.PipeDiameter) {
		return false, fmt.Sprintf("pipe_diameter %q is not a nominal size", p.PipeDiameter)
	}

	seen := make(map[string]bool, len(p.SpecialConditions))
	conditions := make([]string, 0, len(p.SpecialConditions))
	for _, c := range p.SpecialConditions {
		c = strings.TrimSpace(c)
		if !slices.Contains(models.SpecialConditions, c) {
			return false, fmt.Sprintf("unknown special condition %q", c)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		conditions = append(conditions, c)
	}
	p.SpecialConditions = conditions

	return true, ""
}

// ValidateChat checks an analyst chat message and its history.
func ValidateChat(message string, history []models.ChatMessage) (bool, string) {
	if strings.TrimSpace(message) == "" {
		return false, "message is required"
	}
	if utf8.RuneCountInString(message) > MaxChatChars {
		return false, fmt.Sprintf("message must be at most %d characters", MaxChatChars)
	}
	if len(history) > MaxChatHistory {
		return false, fmt.Sprintf("history must have at most %d messages", MaxChatHistory)
	}
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			return false, fmt.Sprintf("invalid history role %q", m.Role)
		}
	}
	return true, ""
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
