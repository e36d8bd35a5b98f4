package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"sowmatch/internal/models"
)

var exportNow = time.Date(2026, 10, 1, 15, 4, 0, 0, time.UTC)

func sampleAnalysis() *models.SOWAnalysis {
	wt := "HDD/Bore"
	return &models.SOWAnalysis{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Filename:       `Red "River" Crossing.docx`,
		WorkTypeFilter: &wt,
		SOWText:        "scope",
		CorpusSize:     12,
		Results: models.AnalysisResults{
			Summary: "HDD crossing scope.",
			Matches: []models.Match{
				{LessonID: 3, Relevance: models.RelevanceLow, Reason: "general"},
				{LessonID: 1, Relevance: models.RelevanceHigh, Reason: "frac-out"},
				{LessonID: 2, Relevance: models.RelevanceMedium, Reason: "coating"},
				{LessonID: 4, Relevance: models.RelevanceHigh, Reason: "deleted lesson"},
			},
			Gaps:            []string{},
			Recommendations: []string{},
		},
	}
}

func sampleLessons() []models.Lesson {
	return []models.Lesson{
		{ID: 1, Title: "Frac-out under river", Discipline: "Construction", WorkType: "HDD/Bore"},
		{ID: 2, Title: "Coating holidays", Discipline: "Coating"},
		{ID: 3, Title: "Document control", Discipline: "QA"},
	}
}

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	f, err := NewFormatter()
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}
	return f
}

func TestFilename(t *testing.T) {
	tests := []struct {
		in, ext, want string
	}{
		{"Mainline SOW.docx", "xlsx", "Mainline SOW - SOW Analysis.xlsx"},
		{"scope.PDF", "html", "scope - SOW Analysis.html"},
		{`Red "River".txt`, "txt", "Red River - SOW Analysis.txt"},
		{"notes.v2", "xlsx", "notes.v2 - SOW Analysis.xlsx"},
		{"", "xlsx", "sow-analysis - SOW Analysis.xlsx"},
		{".docx", "xlsx", "sow-analysis - SOW Analysis.xlsx"},
	}
	for _, tt := range tests {
		if got := Filename(tt.in, tt.ext); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
		ok   bool
	}{
		{"", TargetSpreadsheet, true},
		{"xlsx", TargetSpreadsheet, true},
		{"Report", TargetReport, true},
		{"text", TargetText, true},
		{"docx", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTarget(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTarget(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCurrency(t *testing.T) {
	if got := Currency(2700000); got != "$2,700,000" {
		t.Errorf("Currency(2700000) = %q", got)
	}
	if got := Currency(950); got != "$950" {
		t.Errorf("Currency(950) = %q", got)
	}
}

func TestBuildView_Grouping(t *testing.T) {
	v := buildView(sampleAnalysis(), sampleLessons(), exportNow)

	var order []int64
	for _, r := range v.Rows {
		order = append(order, r.LessonID)
	}
	want := []int64{1, 4, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("row order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("row order = %v, want %v", order, want)
		}
	}
	if v.Rows[1].Title != "Lesson #4" {
		t.Errorf("deleted lesson title = %q, want Lesson #4", v.Rows[1].Title)
	}

	again := buildView(sampleAnalysis(), sampleLessons(), exportNow)
	if len(again.Groups) != len(v.Groups) {
		t.Fatal("grouping is not stable across renders")
	}
	for i := range v.Groups {
		if again.Groups[i].Relevance != v.Groups[i].Relevance || len(again.Groups[i].Rows) != len(v.Groups[i].Rows) {
			t.Errorf("group %d differs between renders", i)
		}
	}
}

func TestFormat_Report(t *testing.T) {
	f := newFormatter(t)

	doc, err := f.Format(sampleAnalysis(), sampleLessons(), TargetReport, exportNow)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	body := string(doc.Body)

	if doc.ContentType != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
	if doc.Filename != "Red River Crossing - SOW Analysis.html" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if strings.Count(body, noneIdentified) != 2 {
		t.Errorf("report should render empty-state for gaps and recommendations, got %d", strings.Count(body, noneIdentified))
	}
	high := strings.Index(body, "Frac-out under river")
	medium := strings.Index(body, "Coating holidays")
	low := strings.Index(body, "Document control")
	if high < 0 || medium < 0 || low < 0 || !(high < medium && medium < low) {
		t.Errorf("report not grouped High, Medium, Low (positions %d %d %d)", high, medium, low)
	}
	for _, want := range []string{"Lessons corpus: 12", "Applicable lessons: 4", "Scope type: HDD/Bore", "October 1, 2026"} {
		if !strings.Contains(body, want) {
			t.Errorf("report footer missing %q", want)
		}
	}
}

func TestFormat_TextEmptyStates(t *testing.T) {
	f := newFormatter(t)
	a := sampleAnalysis()
	a.Results.Matches = []models.Match{}

	doc, err := f.Format(a, nil, TargetText, exportNow)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	body := string(doc.Body)
	if strings.Count(body, noneIdentified) != 3 {
		t.Errorf("text report should render three empty states:\n%s", body)
	}
	if !strings.Contains(body, "APPLICABLE LESSONS (0)") {
		t.Error("text report missing applicable count")
	}
}

func TestFormat_Spreadsheet(t *testing.T) {
	f := newFormatter(t)
	a := sampleAnalysis()
	a.Results.Deliverables = map[models.DeliverableType]models.Deliverable{
		models.DeliverableStaffingEstimate: {
			Type:   models.DeliverableStaffingEstimate,
			Status: models.StatusOK,
			StaffingEstimate: &models.StaffingEstimate{
				Positions:      []models.Position{{Title: "CWI", Count: 2, DurationMonths: 12}},
				TotalHeadcount: 2,
				PeakHeadcount:  2,
				CostEstimate:   &models.CostEstimate{Note: "Rough order of magnitude only", MonthlyBurnRate: 150000, TotalEstimated: 2700000},
			},
		},
		models.DeliverableRiskRegister: {Type: models.DeliverableRiskRegister, Status: models.StatusError, Message: "timed out"},
	}

	doc, err := f.Format(a, sampleLessons(), TargetSpreadsheet, exportNow)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.HasSuffix(doc.Filename, ".xlsx") {
		t.Errorf("Filename = %q", doc.Filename)
	}

	x, err := excelize.OpenReader(bytes.NewReader(doc.Body))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer x.Close()

	sheets := x.GetSheetList()
	want := []string{sheetLessons, sheetRecommendations, sheetGaps, sheetStaffing}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, sheets[i], want[i])
		}
	}

	header, _ := x.GetCellValue(sheetLessons, "G1")
	if header != "Recommendation" {
		t.Errorf("lessons header G1 = %q", header)
	}
	first, _ := x.GetCellValue(sheetLessons, "A2")
	if first != "High" {
		t.Errorf("first lesson relevance = %q, want High", first)
	}
	gap, _ := x.GetCellValue(sheetGaps, "B2")
	if gap != noneIdentified {
		t.Errorf("gaps empty state = %q", gap)
	}

	rows, _ := x.GetRows(sheetStaffing)
	found := false
	for _, r := range rows {
		if len(r) > 1 && r[0] == "Total estimated" && r[1] == "$2,700,000" {
			found = true
		}
	}
	if !found {
		t.Errorf("staffing sheet missing grouped total: %v", rows)
	}
}
