// Package report renders surveillance reports as PDF documents.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/sentinel-sea/internal/filter"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

const (
	DefaultTitle = "Maritime Surveillance Report"
	DateLayout   = "2006-01-02"

	// maxRows caps the detail table.
	maxRows = 50
)

var (
	ErrInvalidRange = errors.New("report start date is after end date")
	ErrInvalidType  = errors.New("invalid report type")
)

type Request struct {
	Type        models.ReportType
	Title       string
	From        time.Time
	To          time.Time
	GeneratedBy string
}

// Normalize fills defaults and truncates the range to whole UTC days.
func (r Request) Normalize() (Request, error) {
	if r.Type == "" {
		r.Type = models.ReportDaily
	}
	if _, ok := models.ParseReportType(string(r.Type)); !ok {
		return r, fmt.Errorf("%w: %s", ErrInvalidType, r.Type)
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	r.From = day(r.From)
	r.To = day(r.To)
	if r.To.Before(r.From) {
		return r, ErrInvalidRange
	}
	return r, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Summary struct {
	Total         int     `json:"total"`
	HighThreat    int     `json:"high_threat"`
	MPAIntrusions int     `json:"mpa_intrusions"`
	DarkVessels   int     `json:"dark_vessels"`
	AvgThreat     float64 `json:"avg_threat"`
}

func Summarize(ds []models.Detection) Summary {
	var s Summary
	sum := 0
	for i := range ds {
		d := &ds[i]
		s.Total++
		sum += d.ThreatScore
		if d.ThreatScore >= threat.HighThreshold {
			s.HighThreat++
		}
		if d.InsideMPA {
			s.MPAIntrusions++
		}
		if d.IsAnomalous() {
			s.DarkVessels++
		}
	}
	if s.Total > 0 {
		s.AvgThreat = math.Round(float64(sum)/float64(s.Total)*100) / 100
	}
	return s
}

// Select keeps detections from the start of from through the end of to.
func Select(ds []models.Detection, from, to time.Time) []models.Detection {
	end := filter.NextDay(day(to))
	out := make([]models.Detection, 0, len(ds))
	for _, d := range ds {
		if d.Timestamp.Before(day(from)) || !d.Timestamp.Before(end) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func Filename(from, to time.Time) string {
	return fmt.Sprintf("sentinel-sea-report-%s-to-%s.pdf", from.Format(DateLayout), to.Format(DateLayout))
}

type Result struct {
	Filename string
	PDF      []byte
	Summary  Summary
	Record   models.Report
}

// Build renders a report over the detections of ds that fall in the
// requested range.
func Build(ds []models.Detection, req Request, now time.Time) (*Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	rows := Select(ds, req.From, req.To)
	s := Summarize(rows)

	pdf, err := render(rows, req, s, now)
	if err != nil {
		return nil, fmt.Errorf("error rendering report: %w", err)
	}

	return &Result{
		Filename: Filename(req.From, req.To),
		PDF:      pdf,
		Summary:  s,
		Record: models.Report{
			ID:              uuid.NewString(),
			Type:            req.Type,
			Title:           req.Title,
			DateFrom:        req.From,
			DateTo:          req.To,
			Summary:         fmt.Sprintf("Generated report covering %d detections with %d high-threat alerts.", s.Total, s.HighThreat),
			TotalDetections: s.Total,
			HighThreatCount: s.HighThreat,
			MPAIntrusions:   s.MPAIntrusions,
			DarkVessels:     s.DarkVessels,
			AvgThreatScore:  s.AvgThreat,
			GeneratedBy:     req.GeneratedBy,
			CreatedAt:       now,
		},
	}, nil
}

// Recorder receives report counters.
type Recorder interface {
	ReportGenerated(t models.ReportType)
}

// Generator builds reports from the store and keeps a record of each one.
type Generator struct {
	store    repository.Store
	recorder Recorder
	now      func() time.Time
}

func NewGenerator(store repository.Store, recorder Recorder) *Generator {
	return &Generator{
		store:    store,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	until := filter.NextDay(req.To)
	ds, err := g.store.ListDetections(ctx, repository.Filter{Since: &req.From, Until: &until})
	if err != nil {
		return nil, fmt.Errorf("error loading detections: %w", err)
	}

	res, err := Build(ds, req, g.now())
	if err != nil {
		return nil, err
	}

	// the download does not depend on the record being stored
	switch err := g.store.AddReport(ctx, &res.Record); {
	case errors.Is(err, repository.ErrReadOnly):
		slog.Debug("report not persisted", "reason", err)
	case err != nil:
		slog.Error("error saving report", "title", req.Title, "error", err)
	}

	if g.recorder != nil {
		g.recorder.ReportGenerated(req.Type)
	}
	slog.Info("report generated", "type", req.Type, "from", req.From.Format(DateLayout),
		"to", req.To.Format(DateLayout), "detections", res.Summary.Total)
	return res, nil
}

func (g *Generator) List(ctx context.Context, limit int) ([]models.Report, error) {
	return g.store.ListReports(ctx, limit)
}
