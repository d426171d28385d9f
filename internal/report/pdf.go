// Package report exports an analysis as a printable PDF.
package report

import (
	"fmt"
	"io"
	"time"

	"atsquick/internal/dashboard"

	"github.com/go-pdf/fpdf"
)

// DefaultFilename is used when no output path is given
const DefaultFilename = "resume-ats-report.pdf"

const (
	marginLeft    = 20.0
	topY          = 20.0
	bottomReserve = 30.0
	skillBarX     = 60.0
	skillBarWidth = 120.0
	skillBarH     = 4.0
	wrapWidth     = 160.0
	fontFamily    = "Helvetica"
)

type rgb struct{ r, g, b int }

var (
	brand     = rgb{98, 154, 199}
	muted     = rgb{100, 116, 139}
	heading   = rgb{15, 23, 42}
	body      = rgb{51, 65, 85}
	divider   = rgb{200, 200, 200}
	barTrack  = rgb{229, 231, 235}
	footerInk = rgb{120, 113, 108}
)

// ScoreColor returns the ink for a score in the report
func ScoreColor(score int) (int, int, int) {
	switch {
	case score >= 75:
		return 34, 197, 94
	case score >= 50:
		return 249, 115, 22
	default:
		return 239, 68, 68
	}
}

// Interpretation is the one-line verdict printed under the score
func Interpretation(score int) string {
	switch {
	case score >= 80:
		return "Excellent - Your resume is highly optimized for ATS"
	case score >= 60:
		return "Good - Your resume is ATS-friendly with room for improvement"
	case score >= 40:
		return "Fair - Consider making improvements for better ATS compatibility"
	default:
		return "Poor - Significant improvements needed for ATS compatibility"
	}
}

// writer tracks the cursor while the document is laid out top to bottom
type writer struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	y          float64
	pageWidth  float64
	pageHeight float64
}

// Write lays out view as an A4 PDF and writes it to w. generatedAt is stamped in
// the footer and document metadata so the same input yields the same layout.
func Write(w io.Writer, view dashboard.View, generatedAt time.Time) error {
	if !view.HasResult {
		return fmt.Errorf("no analysis to export")
	}

	pdf := layout(view, generatedAt)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func layout(view dashboard.View, generatedAt time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("ATSQuick Resume Analysis Report", true)
	pdf.SetCreator("ATSQuick", true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)

	pageWidth, pageHeight := pdf.GetPageSize()
	rw := &writer{
		pdf:        pdf,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		y:          topY,
		pageWidth:  pageWidth,
		pageHeight: pageHeight,
	}

	footer := fmt.Sprintf("ATSQuick © %d | Report generated on %s",
		generatedAt.Year(), generatedAt.Format("Jan 2, 2006"))
	pdf.SetFooterFunc(func() {
		rw.line(pageHeight - 15)
		rw.font("", 8, footerInk)
		pdf.Text(marginLeft, pageHeight-8, rw.tr(footer))
	})

	pdf.AddPage()
	rw.header()
	rw.score(view)
	rw.skills(view.AllSkills)
	rw.numbered(dashboard.SectionJobMatches, view.JobMatches, dashboard.MessageNoJobMatches)
	rw.suggestions(view.Suggestions)
	return pdf
}

func (rw *writer) font(style string, size float64, c rgb) {
	rw.pdf.SetFont(fontFamily, style, size)
	rw.pdf.SetTextColor(c.r, c.g, c.b)
}

func (rw *writer) text(x, y float64, s string) {
	rw.pdf.Text(x, y, rw.tr(s))
}

func (rw *writer) line(y float64) {
	rw.pdf.SetDrawColor(divider.r, divider.g, divider.b)
	rw.pdf.Line(marginLeft, y, rw.pageWidth-marginLeft, y)
}

// breakIfNeeded starts a new page once the cursor enters the footer zone
func (rw *writer) breakIfNeeded() {
	if rw.y > rw.pageHeight-bottomReserve {
		rw.pdf.AddPage()
		rw.y = topY
	}
}

// section closes the previous block with a divider and prints a heading
func (rw *writer) section(title string) {
	rw.y += 8
	rw.breakIfNeeded()
	rw.line(rw.y)
	rw.y += 10
	rw.font("B", 14, heading)
	rw.text(marginLeft, rw.y, title)
	rw.y += 10
	rw.font("", 10, body)
}

func (rw *writer) header() {
	rw.font("B", 20, brand)
	rw.text(marginLeft, rw.y, "ATSQuick")
	rw.font("", 10, muted)
	rw.text(marginLeft, rw.y+6, "AI Resume Analysis Report")

	rw.y += 18
	rw.line(rw.y)
	rw.y += 8
}

func (rw *writer) score(view dashboard.View) {
	rw.font("B", 14, heading)
	rw.text(marginLeft, rw.y, "Overall ATS Score")
	rw.y += 10

	if view.ScoreValid {
		r, g, b := ScoreColor(view.Score)
		rw.font("B", 48, rgb{r, g, b})
		rw.text(marginLeft, rw.y+12, fmt.Sprintf("%d", view.Score))
		rw.font("B", 14, muted)
		rw.text(45, rw.y+12, "/ 100")
	} else {
		rw.font("B", 48, muted)
		rw.text(marginLeft, rw.y+12, "N/A")
	}

	rw.y += 25
	rw.font("", 10, muted)
	if view.ScoreValid {
		rw.text(marginLeft, rw.y, Interpretation(view.Score))
	} else {
		rw.text(marginLeft, rw.y, dashboard.MessageScoreUnavailable)
	}
	rw.y += 7
}

func (rw *writer) skills(skills []dashboard.Skill) {
	rw.section("Skills Analysis")
	if len(skills) == 0 {
		rw.text(marginLeft, rw.y, dashboard.MessageNoSkills)
		rw.y += 7
		return
	}

	for _, skill := range skills {
		rw.breakIfNeeded()

		rw.pdf.SetDrawColor(barTrack.r, barTrack.g, barTrack.b)
		rw.pdf.Rect(skillBarX, rw.y, skillBarWidth, skillBarH, "D")
		if fill := skill.Value / 100 * skillBarWidth; fill > 0 {
			rw.pdf.SetFillColor(brand.r, brand.g, brand.b)
			rw.pdf.Rect(skillBarX, rw.y, fill, skillBarH, "F")
		}

		rw.font("B", 10, heading)
		rw.text(marginLeft, rw.y+3, truncate(rw.pdf, rw.tr(skill.Name), skillBarX-marginLeft-4)+":")
		rw.font("", 10, muted)
		rw.text(190, rw.y+3, fmt.Sprintf("%.0f%%", skill.Value))

		rw.y += 8
	}
}

func (rw *writer) numbered(title string, items []string, empty string) {
	rw.section(title)
	if len(items) == 0 {
		rw.text(marginLeft, rw.y, empty)
		rw.y += 7
		return
	}

	for i, item := range items {
		rw.breakIfNeeded()
		rw.text(24, rw.y, fmt.Sprintf("%d. %s", i+1, item))
		rw.y += 7
	}
}

func (rw *writer) suggestions(items []string) {
	rw.section(dashboard.SectionSuggestions)
	if len(items) == 0 {
		rw.text(marginLeft, rw.y, dashboard.MessageNoSuggestions)
		return
	}

	for i, item := range items {
		rw.breakIfNeeded()
		lines := rw.pdf.SplitText(rw.tr(item), wrapWidth)
		rw.pdf.Text(24, rw.y, fmt.Sprintf("%d.", i+1))
		for n, line := range lines {
			rw.pdf.Text(28, rw.y+float64(n)*6, line)
		}
		rw.y += float64(len(lines))*6 + 4
	}
}

// truncate shortens s with an ellipsis until it fits in width
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
