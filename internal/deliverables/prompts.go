package deliverables

import (
	"fmt"
	"strings"

	"sowmatch/internal/models"
)

const riskSystem = "You are a senior quality risk management specialist for pipeline and energy construction. Build a project-specific quality risk register from historical lessons learned and the gaps found in a scope of work analysis."

const riskSchema = `{
  "summary": "2-3 sentence overview of the risk profile for this scope",
  "risks": [
    {
      "id": "QR-001",
      "category": "e.g. Welding Quality",
      "description": "1 concise sentence referencing scope conditions",
      "likelihood": "High" | "Medium" | "Low",
      "consequence": "High" | "Medium" | "Low",
      "risk_level": "Critical" | "High" | "Medium" | "Low",
      "mitigation": "1 concise sentence",
      "owner": "responsible role",
      "source_lessons": [<lesson id> | "gap-based note"],
      "residual_risk": "Low" | "Medium"
    }
  ]
}`

const riskInstructions = `INSTRUCTIONS:
- Derive risks from the matched lessons (historical evidence) and from the identified gaps (unknown risks).
- For lesson-derived risks list the lesson ids in source_lessons. For gap-derived risks set source_lessons to ["No historical data, gap-based risk"].
- Likelihood reflects how often similar issues appear in the lessons. Consequence reflects schedule, cost, safety and regulatory impact.
- Risk level matrix: Critical = High/High; High = High/Medium or Medium/High; Medium = Medium/Medium, Low/High or High/Low; Low = Low/Low, Low/Medium or Medium/Low.
- Mitigations should use the organization's existing programs where they apply.
- Owners are roles such as "Project Quality Manager" or "NDE Level III", never names.
- At most 10 risks, numbered QR-001 upward. Keep each field under 30 words.
`

const staffingSystem = "You are a senior quality director estimating quality staffing for a pipeline construction project. Start from industry ratios, apply the scope parameters, and add oversight where historical lessons show it was needed."

const staffingSchema = `{
  "summary": "2-3 sentence overview of the staffing approach",
  "positions": [
    {"title": "Position Title", "count": 1, "duration_months": 12, "phase": "Full Duration", "justification": "1 sentence"}
  ],
  "total_headcount": 10,
  "peak_headcount": 8,
  "assumptions": ["at most 5 one-sentence assumptions"],
  "lessons_impact": ["at most 5 sentences naming lesson ids that drove increases"],
  "cost_estimate": {"note": "Rough order of magnitude only", "monthly_burn_rate": 150000, "total_estimated": 2700000, "basis": "rate assumptions and method"}
}`

const staffingGuidance = `STAFFING BASELINE RATIOS (adjust for scope and lessons):
- 1 Project Quality Manager per project
- 1 Quality Lead per spread
- 1 Welding Inspector (CWI) per 15-20 welders on a spread
- 1 Coating Inspector per spread with coating scope
- 1 NDE Coordinator per 2-3 NDE crews
- 1 Document Control Specialist per project (2 for mega-projects)
- Facilities add civil, mechanical and electrical inspectors

SPECIAL CONDITION ADJUSTMENTS:
- Arctic/Cold Weather: environmental compliance specialist, extra inspector overlap for weather delays
- FERC Jurisdictional: regulatory documentation specialist
- Sour Service (H2S): material verification inspector, additional NDE coverage
- Foreign Material Exclusion: dedicated FME inspector per spread
- Class 3/4 Locations: higher CWI coverage, safety liaison
- HDD Crossings: HDD quality specialist per crossing crew
- Offshore/Water Crossing: marine/environmental inspector, additional NDE

COST RATES (fully burdened, ROM only, 45-50 hour field weeks):
- Quality Manager $180-220/hr; Quality Lead $150-180/hr; CWI/Inspector $120-150/hr
- NDE Coordinator $130-160/hr; Document Control $80-110/hr; Environmental Compliance $100-130/hr

INSTRUCTIONS:
- Reference lesson ids that justify staffing above baseline.
- Give each position a phase (Full Duration, Construction Only, Pre-Construction Only, Commissioning, ...).
- No position may run longer than the project duration when one is given.
- total_headcount counts all positions; peak_headcount is the most staff on site at once.
- Keep justifications to one sentence.
`

const specGapsSystem = "You are a pipeline construction quality engineer reviewing a scope of work against company history. Flag code, standard and specification areas where past lessons show the written requirements were insufficient or silent."

const specGapsSchema = `{
  "summary": "1-2 sentence overview",
  "items": [
    {"area": "e.g. Welding Procedures", "reference": "code, standard or SOW section", "risk": "what could go wrong", "recommendation": "specification change or clarification", "source_lessons": [<lesson id> | "gap-based note"]}
  ]
}`

const specGapsInstructions = `INSTRUCTIONS:
- Each item names the specification area, the code or standard it touches, the risk and a concrete clarification to request.
- Cite lesson ids in source_lessons; use a gap-based note when no lesson applies.
- At most 10 items. Keep each field under 30 words.
`

const narrativeSystem = "You are preparing a one-page executive summary of a scope of work analysis for a bid review meeting. Write for senior leadership: plain language, no jargon, decisive."

const narrativeSchema = `{
  "headline": "one sentence",
  "narrative": "3-5 short paragraphs",
  "key_points": ["3-5 bullets"]
}`

const narrativeInstructions = `INSTRUCTIONS:
- Lead with the overall quality risk posture of the scope.
- Name the few lessons that matter most and what they cost previously.
- Close with the decisions or resources leadership must commit before bid.
`

func riskPrompt(c analysisContext) (string, error) {
	var b strings.Builder
	b.WriteString("Generate a project-specific quality risk register for the following scope.\n\n")
	if err := c.writeScope(&b, true); err != nil {
		return "", err
	}
	c.writeProfile(&b, "These programs are ALREADY IN PLACE. Reference them in mitigations instead of recommending new programs:")
	b.WriteString(riskInstructions)
	return b.String(), nil
}

func staffingPrompt(c analysisContext, p models.StaffingParams) (string, error) {
	var b strings.Builder
	b.WriteString("Generate a quality staffing estimate for the following scope.\n\n")
	if err := c.writeScope(&b, false); err != nil {
		return "", err
	}
	writeStaffingParams(&b, p)
	c.writeProfile(&b, "Existing programs and systems already in place:")
	b.WriteString(staffingGuidance)
	return b.String(), nil
}

func writeStaffingParams(b *strings.Builder, p models.StaffingParams) {
	notSpecified := "Not specified"

	b.WriteString("PROJECT SCOPE PARAMETERS:\n")
	fmt.Fprintf(b, "- Pipe Diameter: %s\n", orDefault(p.PipeDiameter, notSpecified))

	welds := notSpecified
	if p.WeldCount != nil {
		welds = fmt.Sprintf("%d", *p.WeldCount)
	}
	fmt.Fprintf(b, "- Estimated Weld Count: %s\n", welds)

	miles := notSpecified
	if p.PipelineMileage != nil {
		miles = fmt.Sprintf("%g", *p.PipelineMileage)
	}
	fmt.Fprintf(b, "- Pipeline Mileage: %s\n", miles)
	spreads := 1
	if p.NumSpreads != nil {
		spreads = *p.NumSpreads
	}
	fmt.Fprintf(b, "- Number of Spreads: %d\n", spreads)
	fmt.Fprintf(b, "- Facilities Count (compressor stations, meter stations, etc.): %d\n", p.FacilitiesCount)

	duration := notSpecified
	if p.DurationMonths != nil {
		duration = fmt.Sprintf("%d months", *p.DurationMonths)
	}
	fmt.Fprintf(b, "- Project Duration: %s\n", duration)

	conditions := "None"
	if len(p.SpecialConditions) > 0 {
		conditions = strings.Join(p.SpecialConditions, ", ")
	}
	fmt.Fprintf(b, "- Special Conditions: %s\n\n", conditions)
}

func specGapsPrompt(c analysisContext) (string, error) {
	var b strings.Builder
	b.WriteString("Identify specification gaps in the following scope.\n\n")
	if err := c.writeScope(&b, true); err != nil {
		return "", err
	}
	c.writeProfile(&b, "Existing programs and procedures:")
	b.WriteString(specGapsInstructions)
	return b.String(), nil
}

func narrativePrompt(c analysisContext) (string, error) {
	var b strings.Builder
	b.WriteString("Write an executive summary of the following scope of work analysis.\n\n")
	if err := c.writeScope(&b, true); err != nil {
		return "", err
	}
	if len(c.Recommendations) > 0 {
		b.WriteString("ANALYSIS RECOMMENDATIONS:\n")
		for i, r := range c.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
		b.WriteString("\n")
	}
	c.writeProfile(&b, "Existing programs:")
	b.WriteString(narrativeInstructions)
	return b.String(), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
