package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetLessons         = "Applicable Lessons"
	sheetRecommendations = "Recommendations"
	sheetGaps            = "Gaps"
	sheetRisks           = "Risk Register"
	sheetStaffing        = "Staffing"
)

type sheetWriter struct {
	f      *excelize.File
	header int
	used   bool // default sheet renamed
	err    error
}

// sheet creates (or renames the default sheet to) name and writes rows
// starting at A1. The first row is styled as a header.
func (w *sheetWriter) sheet(name string, widths []float64, rows [][]any) {
	if w.err != nil {
		return
	}
	if !w.used {
		w.used = true
		w.err = w.f.SetSheetName("Sheet1", name)
	} else {
		_, w.err = w.f.NewSheet(name)
	}
	if w.err != nil {
		return
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			w.err = err
			return
		}
		if w.err = w.f.SetSheetRow(name, cell, &row); w.err != nil {
			return
		}
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			w.err = err
			return
		}
		if w.err = w.f.SetCellStyle(name, "A1", last, w.header); w.err != nil {
			return
		}
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = err
			return
		}
		if w.err = w.f.SetColWidth(name, col, col, width); w.err != nil {
			return
		}
	}
}

func renderSpreadsheet(v view) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	w := &sheetWriter{f: f, header: header}

	lessons := [][]any{{"Relevance", "Lesson Title", "Discipline", "Work Type", "Project", "Why It Applies", "Recommendation"}}
	for _, r := range v.Rows {
		lessons = append(lessons, []any{string(r.Relevance), r.Title, r.Discipline, r.WorkType, r.Project, r.Reason, r.Recommendation})
	}
	if len(v.Rows) == 0 {
		lessons = append(lessons, []any{v.None})
	}
	w.sheet(sheetLessons, []float64{12, 40, 18, 18, 24, 60, 60}, lessons)

	w.sheet(sheetRecommendations, []float64{6, 100}, numbered("Recommendation", v.Recommendations))
	w.sheet(sheetGaps, []float64{6, 100}, numbered("Gap", v.Gaps))

	if rr := v.RiskRegister; rr != nil {
		rows := [][]any{{"ID", "Category", "Description", "Likelihood", "Consequence", "Risk Level", "Mitigation", "Owner", "Source Lessons", "Residual Risk"}}
		for _, r := range rr.Risks {
			rows = append(rows, []any{r.ID, r.Category, r.Description, r.Likelihood, r.Consequence, r.RiskLevel, r.Mitigation, r.Owner, sourceLabel(r.SourceLessons), r.ResidualRisk})
		}
		w.sheet(sheetRisks, []float64{10, 20, 50, 12, 12, 12, 50, 24, 20, 12}, rows)
	}

	if s := v.Staffing; s != nil {
		rows := [][]any{{"Position", "Count", "Duration (months)", "Phase", "Justification"}}
		for _, p := range s.Positions {
			rows = append(rows, []any{p.Title, p.Count, p.DurationMonths, p.Phase, p.Justification})
		}
		rows = append(rows,
			[]any{},
			[]any{"Total headcount", s.TotalHeadcount},
			[]any{"Peak headcount", s.PeakHeadcount},
		)
		if s.CostEstimate != nil {
			rows = append(rows,
				[]any{"Monthly burn rate", s.MonthlyBurn},
				[]any{"Total estimated", s.Total},
				[]any{"Note", s.CostEstimate.Note},
			)
		}
		w.sheet(sheetStaffing, []float64{36, 10, 18, 28, 60}, rows)
	}

	if w.err != nil {
		return nil, fmt.Errorf("failed to build spreadsheet: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func numbered(heading string, items []string) [][]any {
	rows := [][]any{{"#", heading}}
	if len(items) == 0 {
		return append(rows, []any{"", noneIdentified})
	}
	for i, it := range items {
		rows = append(rows, []any{i + 1, it})
	}
	return rows
}
