package postgrest

import (
	"time"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

// detectionRow mirrors the flat vessel_detections table.
type detectionRow struct {
	ID              string     `json:"id"`
	VesselID        string     `json:"vessel_id"`
	Timestamp       time.Time  `json:"timestamp"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	AISStatus       string     `json:"ais_status"`
	VesselSize      *string    `json:"vessel_size"`
	SizeClass       *string    `json:"size_class"`
	EstimatedLength *int       `json:"estimated_length"`
	ThreatScore     int        `json:"threat_score"`
	SARArea         *float64   `json:"sar_area"`
	SARIntensity    *float64   `json:"sar_intensity"`
	SARElongation   *float64   `json:"sar_elongation"`
	SARBackscatter  *float64   `json:"sar_backscatter"`
	SARConfidence   *float64   `json:"sar_confidence"`
	InsideMPA       bool       `json:"inside_mpa"`
	MPAName         *string    `json:"mpa_name"`
	MaritimeZone    *string    `json:"maritime_zone"`
	Source          *string    `json:"source"`
	ReviewStatus    *string    `json:"review_status"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	ReviewedBy      *string    `json:"reviewed_by"`
	Notes           *string    `json:"notes"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

func toDetectionRow(d *models.Detection) detectionRow {
	r := detectionRow{
		ID:           d.ID,
		VesselID:     d.VesselID,
		Timestamp:    d.Timestamp.UTC(),
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		AISStatus:    string(d.AISStatus),
		VesselSize:   optString(d.VesselSize),
		SizeClass:    optString(string(d.SizeClass)),
		ThreatScore:  d.ThreatScore,
		InsideMPA:    d.InsideMPA,
		MPAName:      optString(d.MPAName),
		MaritimeZone: optString(d.MaritimeZone),
		Source:       optString(string(d.Source)),
		ReviewStatus: optString(string(d.Review.Status)),
		ReviewedAt:   d.Review.ReviewedAt,
		ReviewedBy:   optString(d.Review.ReviewedBy),
		Notes:        optString(d.Review.Notes),
	}
	if d.EstimatedLength > 0 {
		length := d.EstimatedLength
		r.EstimatedLength = &length
	}
	if d.SAR != nil {
		sar := *d.SAR
		r.SARArea = &sar.Area
		r.SARIntensity = &sar.Intensity
		r.SARElongation = &sar.Elongation
		r.SARBackscatter = &sar.Backscatter
		r.SARConfidence = &sar.Confidence
	}
	if !d.UpdatedAt.IsZero() {
		at := d.UpdatedAt.UTC()
		r.UpdatedAt = &at
	}
	return r
}

func (r detectionRow) toModel() models.Detection {
	d := models.Detection{
		ID:           r.ID,
		VesselID:     r.VesselID,
		Timestamp:    r.Timestamp,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		AISStatus:    models.AISStatus(r.AISStatus),
		VesselSize:   deref(r.VesselSize),
		ThreatScore:  r.ThreatScore,
		InsideMPA:    r.InsideMPA,
		MPAName:      deref(r.MPAName),
		MaritimeZone: deref(r.MaritimeZone),
		Source:       models.DetectionSource(deref(r.Source)),
		Review: models.Review{
			Status:     models.ReviewStatus(deref(r.ReviewStatus)),
			ReviewedAt: r.ReviewedAt,
			ReviewedBy: deref(r.ReviewedBy),
			Notes:      deref(r.Notes),
		},
	}

	// Rows written by older clients carry only the free-form size label.
	d.SizeClass = models.SizeClass(deref(r.SizeClass))
	if d.SizeClass == "" {
		d.SizeClass = models.ParseSizeClass(d.VesselSize)
	}
	if r.EstimatedLength != nil {
		d.EstimatedLength = *r.EstimatedLength
	}
	if d.Source == "" {
		d.Source = models.SourceSimulated
	}
	if d.Review.Status == "" {
		d.Review.Status = models.ReviewPending
	}
	if r.SARArea != nil {
		d.SAR = &models.SARFeatures{
			Area:        *r.SARArea,
			Intensity:   derefFloat(r.SARIntensity),
			Elongation:  derefFloat(r.SARElongation),
			Backscatter: derefFloat(r.SARBackscatter),
			Confidence:  derefFloat(r.SARConfidence),
		}
	}
	if r.UpdatedAt != nil {
		d.UpdatedAt = *r.UpdatedAt
	} else {
		d.UpdatedAt = r.Timestamp
	}
	return d
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
