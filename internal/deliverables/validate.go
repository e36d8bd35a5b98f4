package deliverables

import (
	"fmt"
	"strings"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
	"sowmatch/internal/oracle"
)

const romNote = "Rough order of magnitude only"

var (
	riskLevels  = []string{"Critical", "High", "Medium", "Low"}
	scaleLevels = []string{"High", "Medium", "Low"}
)

// canonical returns the allowed value equal to s ignoring case, or "".
func canonical(s string, allowed []string) string {
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a
		}
	}
	return ""
}

// canonicalOrKeep canonicalizes s when possible and otherwise keeps the
// trimmed original.
func canonicalOrKeep(s string, allowed []string) string {
	if c := canonical(s, allowed); c != "" {
		return c
	}
	return strings.TrimSpace(s)
}

func decodeRiskRegister(text string) (*models.RiskRegister, error) {
	const op = "deliverables.risk_register"

	var rr models.RiskRegister
	if err := oracle.DecodeJSON(op, text, &rr); err != nil {
		return nil, err
	}

	risks := make([]models.Risk, 0, len(rr.Risks))
	for _, r := range rr.Risks {
		r.Description = strings.TrimSpace(r.Description)
		if r.Description == "" {
			continue
		}
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			r.ID = fmt.Sprintf("QR-%03d", len(risks)+1)
		}
		if level := canonical(r.RiskLevel, riskLevels); level != "" {
			r.RiskLevel = level
		} else {
			r.RiskLevel = "Medium"
		}
		r.Likelihood = canonicalOrKeep(r.Likelihood, scaleLevels)
		r.Consequence = canonicalOrKeep(r.Consequence, scaleLevels)
		r.ResidualRisk = canonicalOrKeep(r.ResidualRisk, riskLevels)
		if r.SourceLessons == nil {
			r.SourceLessons = []models.SourceRef{}
		}
		risks = append(risks, r)
	}
	if len(risks) == 0 {
		return nil, errs.E(errs.OracleParseFailure, op, "risk register contains no risks")
	}

	rr.Summary = strings.TrimSpace(rr.Summary)
	rr.Risks = risks
	return &rr, nil
}

func decodeStaffing(text string, p models.StaffingParams) (*models.StaffingEstimate, error) {
	const op = "deliverables.staffing_estimate"

	var se models.StaffingEstimate
	if err := oracle.DecodeJSON(op, text, &se); err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(se.Positions))
	maxCount, sum := 0, 0
	for _, pos := range se.Positions {
		pos.Title = strings.TrimSpace(pos.Title)
		if pos.Title == "" || pos.Count <= 0 {
			continue
		}
		if p.DurationMonths != nil {
			if pos.DurationMonths <= 0 || pos.DurationMonths > *p.DurationMonths {
				pos.DurationMonths = *p.DurationMonths
			}
		} else if pos.DurationMonths < 0 {
			pos.DurationMonths = 0
		}
		maxCount = max(maxCount, pos.Count)
		sum += pos.Count
		positions = append(positions, pos)
	}
	if len(positions) == 0 {
		return nil, errs.E(errs.OracleParseFailure, op, "staffing estimate contains no positions")
	}
	se.Positions = positions

	if se.TotalHeadcount < maxCount {
		se.TotalHeadcount = sum
	}
	if se.PeakHeadcount > se.TotalHeadcount {
		se.PeakHeadcount = se.TotalHeadcount
	}
	if se.PeakHeadcount < 0 {
		se.PeakHeadcount = 0
	}

	if ce := se.CostEstimate; ce != nil {
		if ce.MonthlyBurnRate <= 0 && ce.TotalEstimated <= 0 {
			se.CostEstimate = nil
		} else {
			ce.MonthlyBurnRate = max(ce.MonthlyBurnRate, 0)
			ce.TotalEstimated = max(ce.TotalEstimated, 0)
			ce.Note = romLabel(ce.Note)
		}
	}

	se.Summary = strings.TrimSpace(se.Summary)
	se.Assumptions = trimAll(se.Assumptions)
	se.LessonsImpact = trimAll(se.LessonsImpact)
	return &se, nil
}

// romLabel makes sure a cost note states it is a rough-order-of-magnitude figure.
func romLabel(note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return romNote
	}
	if strings.Contains(strings.ToLower(note), "rough order of magnitude") {
		return note
	}
	return romNote + ". " + note
}

func decodeSpecGaps(text string) (*models.SpecGaps, error) {
	const op = "deliverables.spec_gaps"

	var sg models.SpecGaps
	if err := oracle.DecodeJSON(op, text, &sg); err != nil {
		return nil, err
	}

	items := make([]models.SpecGapItem, 0, len(sg.Items))
	for _, it := range sg.Items {
		it.Area = strings.TrimSpace(it.Area)
		it.Risk = strings.TrimSpace(it.Risk)
		if it.Area == "" && it.Risk == "" {
			continue
		}
		if it.SourceLessons == nil {
			it.SourceLessons = []models.SourceRef{}
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, errs.E(errs.OracleParseFailure, op, "specification gap list is empty")
	}

	sg.Summary = strings.TrimSpace(sg.Summary)
	sg.Items = items
	return &sg, nil
}

func decodeNarrative(text string) (*models.ExecutiveNarrative, error) {
	const op = "deliverables.executive_narrative"

	var en models.ExecutiveNarrative
	if err := oracle.DecodeJSON(op, text, &en); err != nil {
		return nil, err
	}
	en.Narrative = strings.TrimSpace(en.Narrative)
	if en.Narrative == "" {
		return nil, errs.E(errs.OracleParseFailure, op, "executive narrative is empty")
	}
	en.Headline = strings.TrimSpace(en.Headline)
	en.KeyPoints = trimAll(en.KeyPoints)
	return &en, nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
