// Package export renders analyses as portable documents: an HTML report, a
// plain-text report and an XLSX workbook. Rendering never calls the oracle.
package export

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gofiber/template/html/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sowmatch/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Target is an export format.
type Target string

// Export targets
const (
	TargetReport      Target = "report"
	TargetText        Target = "text"
	TargetSpreadsheet Target = "spreadsheet"
)

// ParseTarget validates a format name. Empty selects the spreadsheet.
func ParseTarget(s string) (Target, bool) {
	switch Target(strings.ToLower(strings.TrimSpace(s))) {
	case "", TargetSpreadsheet, "xlsx":
		return TargetSpreadsheet, true
	case TargetReport, "html":
		return TargetReport, true
	case TargetText, "txt":
		return TargetText, true
	}
	return "", false
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Formatter renders analyses.
type Formatter struct {
	views *html.Engine
}

// NewFormatter loads the embedded report templates.
func NewFormatter() (*Formatter, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open report templates: %w", err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("failed to load report templates: %w", err)
	}
	return &Formatter{views: engine}, nil
}

// Format renders a loaded analysis. lessons is the current corpus, used for
// titles; matches whose lesson was deleted render by id. now stamps the
// footer.
func (f *Formatter) Format(a *models.SOWAnalysis, lessons []models.Lesson, target Target, now time.Time) (*Document, error) {
	v := buildView(a, lessons, now)

	switch target {
	case TargetReport:
		var buf bytes.Buffer
		if err := f.views.Render(&buf, "report", v); err != nil {
			return nil, fmt.Errorf("failed to render report: %w", err)
		}
		return &Document{
			Filename:    Filename(a.Filename, "html"),
			ContentType: "text/html; charset=utf-8",
			Body:        buf.Bytes(),
		}, nil
	case TargetText:
		return &Document{
			Filename:    Filename(a.Filename, "txt"),
			ContentType: "text/plain; charset=utf-8",
			Body:        renderText(v),
		}, nil
	case TargetSpreadsheet:
		body, err := renderSpreadsheet(v)
		if err != nil {
			return nil, err
		}
		return &Document{
			Filename:    Filename(a.Filename, "xlsx"),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	}
	return nil, fmt.Errorf("unknown export target %q", target)
}

// Filename derives the download name from the SOW filename.
func Filename(sowFilename, ext string) string {
	base := strings.NewReplacer(`"`, "", "'", "", "/", "-", `\`, "-").Replace(strings.TrimSpace(sowFilename))
	switch strings.ToLower(path.Ext(base)) {
	case ".doc", ".docx", ".pdf", ".txt":
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	base = strings.TrimSpace(base)
	if base == "" {
		base = "sow-analysis"
	}
	return base + " - SOW Analysis." + ext
}

const noneIdentified = "None identified."

type matchRow struct {
	LessonID       int64
	Title          string
	Discipline     string
	WorkType       string
	Project        string
	Reason         string
	Recommendation string
	Relevance      models.Relevance
}

type matchGroup struct {
	Relevance models.Relevance
	Rows      []matchRow
}

type staffingView struct {
	*models.StaffingEstimate
	MonthlyBurn string
	Total       string
}

// view is the format-independent report model.
type view struct {
	Title           string
	Summary         string
	WorkType        string
	Groups          []matchGroup
	Rows            []matchRow
	Recommendations []string
	Gaps            []string
	GeneratedAt     string
	CorpusSize      int
	ApplicableCount int
	None            string

	RiskRegister *models.RiskRegister
	Staffing     *staffingView
	SpecGaps     *models.SpecGaps
	Narrative    *models.ExecutiveNarrative
}

func buildView(a *models.SOWAnalysis, lessons []models.Lesson, now time.Time) view {
	idx := models.IndexLessons(lessons)

	v := view{
		Title:           strings.TrimSpace(a.Filename),
		Summary:         a.Results.Summary,
		WorkType:        a.WorkType(),
		Recommendations: a.Results.Recommendations,
		Gaps:            a.Results.Gaps,
		GeneratedAt:     now.UTC().Format("January 2, 2006 15:04 MST"),
		CorpusSize:      a.CorpusSize,
		ApplicableCount: len(a.Results.Matches),
		None:            noneIdentified,
	}
	if v.Title == "" {
		v.Title = "Scope of Work"
	}

	groups := a.Results.GroupedMatches()
	for _, rel := range models.Relevances {
		if len(groups[rel]) == 0 {
			continue
		}
		g := matchGroup{Relevance: rel}
		for _, m := range groups[rel] {
			r := matchRow{LessonID: m.LessonID, Reason: m.Reason, Relevance: rel, Title: fmt.Sprintf("Lesson #%d", m.LessonID)}
			if l, ok := idx[m.LessonID]; ok {
				r.Title = l.Title
				r.Discipline = l.Discipline
				r.WorkType = l.WorkType
				r.Project = l.Project
				r.Recommendation = l.Recommendation
			}
			g.Rows = append(g.Rows, r)
			v.Rows = append(v.Rows, r)
		}
		v.Groups = append(v.Groups, g)
	}

	for t, d := range a.Results.Deliverables {
		if d.Status != models.StatusOK {
			continue
		}
		switch t {
		case models.DeliverableRiskRegister:
			v.RiskRegister = d.RiskRegister
		case models.DeliverableStaffingEstimate:
			v.Staffing = newStaffingView(d.StaffingEstimate)
		case models.DeliverableSpecGaps:
			v.SpecGaps = d.SpecGaps
		case models.DeliverableExecutiveNarrative:
			v.Narrative = d.ExecutiveNarrative
		}
	}
	return v
}

func newStaffingView(se *models.StaffingEstimate) *staffingView {
	if se == nil {
		return nil
	}
	sv := &staffingView{StaffingEstimate: se}
	if se.CostEstimate != nil {
		sv.MonthlyBurn = Currency(se.CostEstimate.MonthlyBurnRate)
		sv.Total = Currency(se.CostEstimate.TotalEstimated)
	}
	return sv
}

var printer = message.NewPrinter(language.English)

// Currency formats a whole-dollar amount with digit grouping, e.g. $2,700,000.
func Currency(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

// sourceLabel renders a lesson reference for display.
func sourceLabel(refs []models.SourceRef) string {
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		if id, ok := r.LessonID(); ok {
			parts = append(parts, fmt.Sprintf("#%d", id))
			continue
		}
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}
