package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

type rgb struct{ r, g, b int }

var (
	orange    = rgb{255, 107, 0}
	charcoal  = rgb{40, 40, 40}
	stripe    = rgb{245, 245, 245}
	threatRed = rgb{255, 0, 0}
	threatAmb = rgb{255, 165, 0}
	threatGrn = rgb{0, 128, 0}
)

const (
	font        = "Helvetica"
	margin      = 20.0
	pageBottom  = 297.0 - 25
	detailRowH  = 6.0
	summaryRowH = 8.0
)

var (
	summaryWidths = []float64{110, 60}
	detailHeader  = []string{"Vessel ID", "Time", "AIS", "Threat", "In MPA", "Status"}
	detailWidths  = []float64{40, 30, 20, 25, 25, 30}
)

func render(rows []models.Detection, req Request, s Summary, now time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(font, "", 8)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Page %d of {nb} | Sentinel-Sea © %d", pdf.PageNo(), now.Year())),
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(font, "B", 20)
	pdf.SetTextColor(orange.r, orange.g, orange.b)
	pdf.Text(margin, 20, tr(req.Title))

	pdf.SetFont(font, "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Text(margin, 30, fmt.Sprintf("Report Period: %s - %s", req.From.Format("Jan 02, 2006"), req.To.Format("Jan 02, 2006")))
	pdf.Text(margin, 36, "Generated: "+now.Format("Jan 02, 2006  15:04"))
	pdf.Text(margin, 42, "System: Sentinel-Sea Maritime Surveillance")

	pdf.SetFont(font, "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(margin, 55, "Executive Summary")

	pdf.SetXY(margin, 60)
	summaryTable(pdf, s)

	pdf.Ln(8)
	pdf.SetFont(font, "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, "Detection Details", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	detailTable(pdf, rows)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summaryTable(pdf *fpdf.Fpdf, s Summary) {
	pdf.SetFont(font, "B", 10)
	pdf.SetFillColor(orange.r, orange.g, orange.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)
	for i, h := range []string{"Metric", "Value"} {
		pdf.CellFormat(summaryWidths[i], summaryRowH, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(font, "", 10)
	pdf.SetTextColor(0, 0, 0)
	body := [][2]string{
		{"Total Detections", fmt.Sprint(s.Total)},
		{"High Threat Detections (>=70%)", fmt.Sprint(s.HighThreat)},
		{"MPA Intrusions", fmt.Sprint(s.MPAIntrusions)},
		{"Dark Vessels (AIS OFF)", fmt.Sprint(s.DarkVessels)},
		{"Average Threat Score", fmt.Sprintf("%.2f%%", s.AvgThreat)},
	}
	for _, row := range body {
		pdf.CellFormat(summaryWidths[0], summaryRowH, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(summaryWidths[1], summaryRowH, row[1], "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
}

func detailHeaderRow(pdf *fpdf.Fpdf) {
	pdf.SetFont(font, "B", 8)
	pdf.SetFillColor(charcoal.r, charcoal.g, charcoal.b)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range detailHeader {
		pdf.CellFormat(detailWidths[i], detailRowH+1, h, "", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(font, "", 8)
}

func detailTable(pdf *fpdf.Fpdf, rows []models.Detection) {
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	detailHeaderRow(pdf)
	for i, d := range rows {
		if pdf.GetY()+detailRowH > pageBottom {
			pdf.AddPage()
			detailHeaderRow(pdf)
		}

		fill := i%2 == 1
		pdf.SetFillColor(stripe.r, stripe.g, stripe.b)
		cells := []string{
			d.VesselID,
			d.Timestamp.Format("Jan 02 15:04"),
			string(d.AISStatus),
			fmt.Sprintf("%d%%", d.ThreatScore),
			yesNo(d.InsideMPA),
			statusLabel(d.Review.Status),
		}
		for j, c := range cells {
			color := rgb{0, 0, 0}
			if j == 3 {
				color = threatColor(d.ThreatScore)
			}
			pdf.SetTextColor(color.r, color.g, color.b)
			pdf.CellFormat(detailWidths[j], detailRowH, c, "", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func threatColor(score int) rgb {
	switch threat.Level(score) {
	case threat.LevelHigh:
		return threatRed
	case threat.LevelMedium:
		return threatAmb
	default:
		return threatGrn
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func statusLabel(s models.ReviewStatus) string {
	if s == "" {
		s = models.ReviewPending
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}
