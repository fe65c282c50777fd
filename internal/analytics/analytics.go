// Package analytics computes the dashboard tiles and heatmap layer.
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

type Bucket struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type Stats struct {
	Total            int      `json:"total"`
	Anomalous        int      `json:"anomalous"`
	HighThreat       int      `json:"high_threat"`
	MediumThreat     int      `json:"medium_threat"`
	LowThreat        int      `json:"low_threat"`
	InMPA            int      `json:"in_mpa"`
	Unreviewed       int      `json:"unreviewed"`
	AvgThreat        int      `json:"avg_threat"`
	Last24h          int      `json:"last_24h"`
	AnomalousPercent int      `json:"anomalous_percent"`
	MPAPercent       int      `json:"mpa_percent"`
	Elevated         bool     `json:"elevated"`
	Distribution     []Bucket `json:"distribution"`
}

func Compute(ds []models.Detection, now time.Time) Stats {
	var s Stats
	s.Total = len(ds)

	sum := 0
	for i := range ds {
		d := &ds[i]
		sum += d.ThreatScore
		if d.IsAnomalous() {
			s.Anomalous++
		}
		switch threat.Level(d.ThreatScore) {
		case threat.LevelHigh:
			s.HighThreat++
		case threat.LevelMedium:
			s.MediumThreat++
		default:
			s.LowThreat++
		}
		if d.InsideMPA {
			s.InMPA++
		}
		if !d.Reviewed() {
			s.Unreviewed++
		}
		if now.Sub(d.Timestamp) <= 24*time.Hour {
			s.Last24h++
		}
	}

	if s.Total > 0 {
		s.AvgThreat = int(math.Round(float64(sum) / float64(s.Total)))
		s.AnomalousPercent = percent(s.Anomalous, s.Total)
		s.MPAPercent = percent(s.InMPA, s.Total)
	}
	s.Elevated = s.AvgThreat >= 50

	s.Distribution = []Bucket{
		bucket("High", s.HighThreat, s.Total),
		bucket("Medium", s.MediumThreat, s.Total),
		bucket("Low", s.LowThreat, s.Total),
	}
	return s
}

func percent(n, total int) int {
	return int(math.Round(float64(n) / float64(total) * 100))
}

func bucket(label string, count, total int) Bucket {
	b := Bucket{Label: label, Count: count}
	if total > 0 {
		b.Percent = float64(count) / float64(total) * 100
	}
	return b
}

// HeatPoint is a weighted position; Intensity is threat/100.
type HeatPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// Heatmap skips positions at exactly zero or not finite, which only appear
// for records with missing coordinates.
func Heatmap(ds []models.Detection) []HeatPoint {
	out := make([]HeatPoint, 0, len(ds))
	for _, d := range ds {
		if !finite(d.Latitude) || !finite(d.Longitude) || d.Latitude == 0 || d.Longitude == 0 {
			continue
		}
		out = append(out, HeatPoint{
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Intensity: float64(d.ThreatScore) / 100,
		})
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// RelativeAge renders "12s ago", "3m ago", "5h ago", or a timestamp past a day.
func RelativeAge(t, now time.Time) string {
	diff := int(now.Sub(t).Seconds())
	switch {
	case diff < 0:
		return "just now"
	case diff < 60:
		return fmt.Sprintf("%ds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return t.UTC().Format("2006-01-02 15:04 UTC")
	}
}
