package export

import (
	"bytes"
	"fmt"
	"strings"
)

func renderText(v view) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "SOW ANALYSIS: %s\n", v.Title)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	if v.WorkType != "" {
		fmt.Fprintf(&b, "Scope type: %s\n\n", v.WorkType)
	}

	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "%s\n\n", v.Summary)

	fmt.Fprintf(&b, "APPLICABLE LESSONS (%d)\n", v.ApplicableCount)
	if len(v.Groups) == 0 {
		fmt.Fprintf(&b, "%s\n", v.None)
	}
	for _, g := range v.Groups {
		fmt.Fprintf(&b, "\n%s relevance:\n", g.Relevance)
		for _, r := range g.Rows {
			fmt.Fprintf(&b, "  - %s", r.Title)
			if r.Discipline != "" {
				fmt.Fprintf(&b, " [%s]", r.Discipline)
			}
			b.WriteString("\n")
			if r.Reason != "" {
				fmt.Fprintf(&b, "    Why: %s\n", r.Reason)
			}
		}
	}
	b.WriteString("\n")

	writeNumbered(&b, "RECOMMENDATIONS", v.Recommendations)
	writeNumbered(&b, "GAPS", v.Gaps)

	if n := v.Narrative; n != nil {
		b.WriteString("EXECUTIVE SUMMARY\n")
		if n.Headline != "" {
			fmt.Fprintf(&b, "%s\n\n", n.Headline)
		}
		fmt.Fprintf(&b, "%s\n", n.Narrative)
		for _, p := range n.KeyPoints {
			fmt.Fprintf(&b, "  * %s\n", p)
		}
		b.WriteString("\n")
	}

	if rr := v.RiskRegister; rr != nil {
		b.WriteString("RISK REGISTER\n")
		for _, r := range rr.Risks {
			fmt.Fprintf(&b, "  %s [%s] %s\n", r.ID, r.RiskLevel, r.Description)
			if r.Mitigation != "" {
				fmt.Fprintf(&b, "    Mitigation: %s (%s)\n", r.Mitigation, r.Owner)
			}
		}
		b.WriteString("\n")
	}

	if s := v.Staffing; s != nil {
		b.WriteString("QUALITY STAFFING ESTIMATE\n")
		for _, p := range s.Positions {
			fmt.Fprintf(&b, "  %d x %s, %d months (%s)\n", p.Count, p.Title, p.DurationMonths, p.Phase)
		}
		fmt.Fprintf(&b, "  Total headcount: %d, peak: %d\n", s.TotalHeadcount, s.PeakHeadcount)
		if s.CostEstimate != nil {
			fmt.Fprintf(&b, "  Monthly burn: %s, total: %s. %s\n", s.MonthlyBurn, s.Total, s.CostEstimate.Note)
		}
		b.WriteString("\n")
	}

	if sg := v.SpecGaps; sg != nil {
		b.WriteString("SPECIFICATION GAPS\n")
		for i, it := range sg.Items {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, it.Area, it.Risk)
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "Generated %s | Lessons corpus: %d | Applicable: %d", v.GeneratedAt, v.CorpusSize, v.ApplicableCount)
	if v.WorkType != "" {
		fmt.Fprintf(&b, " | Scope type: %s", v.WorkType)
	}
	b.WriteString("\n")
	return b.Bytes()
}

func writeNumbered(b *bytes.Buffer, heading string, items []string) {
	fmt.Fprintf(b, "%s\n", heading)
	if len(items) == 0 {
		fmt.Fprintf(b, "%s\n\n", noneIdentified)
		return
	}
	for i, it := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, it)
	}
	b.WriteString("\n")
}
