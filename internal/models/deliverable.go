package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeliverableType names a downstream artifact synthesized from an analysis.
type DeliverableType string

// Deliverable types
const (
	DeliverableRiskRegister       DeliverableType = "risk_register"
	DeliverableStaffingEstimate   DeliverableType = "staffing_estimate"
	DeliverableSpecGaps           DeliverableType = "spec_gaps"
	DeliverableExecutiveNarrative DeliverableType = "executive_narrative"
)

// DeliverableTypes lists all known types.
var DeliverableTypes = []DeliverableType{
	DeliverableRiskRegister,
	DeliverableStaffingEstimate,
	DeliverableSpecGaps,
	DeliverableExecutiveNarrative,
}

// Valid reports whether t is a known deliverable type.
func (t DeliverableType) Valid() bool {
	for _, known := range DeliverableTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Title returns the display title for the type.
func (t DeliverableType) Title() string {
	switch t {
	case DeliverableRiskRegister:
		return "Risk Register"
	case DeliverableStaffingEstimate:
		return "Quality Staffing Estimate"
	case DeliverableSpecGaps:
		return "Specification Gaps"
	case DeliverableExecutiveNarrative:
		return "Executive Summary"
	}
	return string(t)
}

// DeliverableStatus is the union discriminant.
type DeliverableStatus string

// Deliverable statuses
const (
	StatusOK    DeliverableStatus = "ok"
	StatusStub  DeliverableStatus = "stub"
	StatusError DeliverableStatus = "error"
)

// Deliverable is a tagged union over the four deliverable payloads. When
// Status is ok exactly the payload matching Type is set.
type Deliverable struct {
	Type        DeliverableType   `json:"type"`
	Status      DeliverableStatus `json:"status"`
	Title       string            `json:"title"`
	Message     string            `json:"message,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`

	RiskRegister       *RiskRegister       `json:"risk_register,omitempty"`
	StaffingEstimate   *StaffingEstimate   `json:"staffing_estimate,omitempty"`
	SpecGaps           *SpecGaps           `json:"spec_gaps,omitempty"`
	ExecutiveNarrative *ExecutiveNarrative `json:"executive_narrative,omitempty"`
}

// Validate checks the union invariant.
func (d Deliverable) Validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("unknown deliverable type %q", d.Type)
	}
	set := 0
	for _, present := range []bool{d.RiskRegister != nil, d.StaffingEstimate != nil, d.SpecGaps != nil, d.ExecutiveNarrative != nil} {
		if present {
			set++
		}
	}
	switch d.Status {
	case StatusOK:
		if set != 1 || !d.payloadMatchesType() {
			return fmt.Errorf("deliverable %s: ok status requires exactly its own payload", d.Type)
		}
	case StatusStub, StatusError:
		if set != 0 {
			return fmt.Errorf("deliverable %s: %s status must not carry a payload", d.Type, d.Status)
		}
	default:
		return fmt.Errorf("deliverable %s: unknown status %q", d.Type, d.Status)
	}
	return nil
}

func (d Deliverable) payloadMatchesType() bool {
	switch d.Type {
	case DeliverableRiskRegister:
		return d.RiskRegister != nil
	case DeliverableStaffingEstimate:
		return d.StaffingEstimate != nil
	case DeliverableSpecGaps:
		return d.SpecGaps != nil
	case DeliverableExecutiveNarrative:
		return d.ExecutiveNarrative != nil
	}
	return false
}

// Clone returns a deep copy.
func (d Deliverable) Clone() Deliverable {
	out := d
	if d.RiskRegister != nil {
		rr := *d.RiskRegister
		rr.Risks = make([]Risk, len(d.RiskRegister.Risks))
		for i, r := range d.RiskRegister.Risks {
			r.SourceLessons = append([]SourceRef{}, r.SourceLessons...)
			rr.Risks[i] = r
		}
		out.RiskRegister = &rr
	}
	if d.StaffingEstimate != nil {
		se := *d.StaffingEstimate
		se.Positions = append([]Position{}, d.StaffingEstimate.Positions...)
		se.Assumptions = append([]string{}, d.StaffingEstimate.Assumptions...)
		se.LessonsImpact = append([]string{}, d.StaffingEstimate.LessonsImpact...)
		if d.StaffingEstimate.CostEstimate != nil {
			ce := *d.StaffingEstimate.CostEstimate
			se.CostEstimate = &ce
		}
		out.StaffingEstimate = &se
	}
	if d.SpecGaps != nil {
		sg := *d.SpecGaps
		sg.Items = make([]SpecGapItem, len(d.SpecGaps.Items))
		for i, it := range d.SpecGaps.Items {
			it.SourceLessons = append([]SourceRef{}, it.SourceLessons...)
			sg.Items[i] = it
		}
		out.SpecGaps = &sg
	}
	if d.ExecutiveNarrative != nil {
		en := *d.ExecutiveNarrative
		en.KeyPoints = append([]string{}, d.ExecutiveNarrative.KeyPoints...)
		out.ExecutiveNarrative = &en
	}
	return out
}

// SourceRef references a lesson id or carries a free-text note such as a
// gap-based risk marker. The oracle emits either JSON numbers or strings.
type SourceRef string

// UnmarshalJSON accepts numbers and strings.
func (s *SourceRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = SourceRef(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("source reference must be a string or number: %w", err)
	}
	*s = SourceRef(n.String())
	return nil
}

// LessonID returns the referenced lesson id if the ref is numeric. A leading
// "#" is tolerated.
func (s SourceRef) LessonID() (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(string(s), "#"), 10, 64)
	return id, err == nil
}

// Risk is one risk register row.
type Risk struct {
	ID            string      `json:"id"`
	Category      string      `json:"category"`
	Description   string      `json:"description"`
	Likelihood    string      `json:"likelihood"`
	Consequence   string      `json:"consequence"`
	RiskLevel     string      `json:"risk_level"`
	Mitigation    string      `json:"mitigation"`
	Owner         string      `json:"owner"`
	SourceLessons []SourceRef `json:"source_lessons"`
	ResidualRisk  string      `json:"residual_risk"`
}

// RiskRegister is the risk_register payload.
type RiskRegister struct {
	Summary string `json:"summary"`
	Risks   []Risk `json:"risks"`
}

// Position is one staffing line.
type Position struct {
	Title          string `json:"title"`
	Count          int    `json:"count"`
	DurationMonths int    `json:"duration_months"`
	Phase          string `json:"phase"`
	Justification  string `json:"justification"`
}

// CostEstimate is a rough-order-of-magnitude cost figure.
type CostEstimate struct {
	Note            string  `json:"note"`
	MonthlyBurnRate float64 `json:"monthly_burn_rate"`
	TotalEstimated  float64 `json:"total_estimated"`
	Basis           string  `json:"basis"`
}

// StaffingEstimate is the staffing_estimate payload.
type StaffingEstimate struct {
	Summary        string        `json:"summary"`
	Positions      []Position    `json:"positions"`
	TotalHeadcount int           `json:"total_headcount"`
	PeakHeadcount  int           `json:"peak_headcount"`
	Assumptions    []string      `json:"assumptions"`
	CostEstimate   *CostEstimate `json:"cost_estimate,omitempty"`
	LessonsImpact  []string      `json:"lessons_impact"`
}

// SpecGapItem is one flagged code or standard risk.
type SpecGapItem struct {
	Area           string      `json:"area"`
	Reference      string      `json:"reference"`
	Risk           string      `json:"risk"`
	Recommendation string      `json:"recommendation"`
	SourceLessons  []SourceRef `json:"source_lessons"`
}

// SpecGaps is the spec_gaps payload.
type SpecGaps struct {
	Summary string        `json:"summary"`
	Items   []SpecGapItem `json:"items"`
}

// ExecutiveNarrative is the executive_narrative payload.
type ExecutiveNarrative struct {
	Headline  string   `json:"headline"`
	Narrative string   `json:"narrative"`
	KeyPoints []string `json:"key_points"`
}
