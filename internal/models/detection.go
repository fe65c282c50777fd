package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type AISStatus string

const (
	AISOn  AISStatus = "ON"
	AISOff AISStatus = "OFF"
)

// SizeClass is the coarse size bucket derived from the vessel size label.
type SizeClass string

const (
	SizeUnknown SizeClass = "unknown"
	SizeSmall   SizeClass = "small"
	SizeMedium  SizeClass = "medium"
	SizeLarge   SizeClass = "large"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewDismissed ReviewStatus = "dismissed"
)

type DetectionSource string

const (
	SourceSimulated DetectionSource = "simulated"
	SourceSAR       DetectionSource = "sar"
	SourceManual    DetectionSource = "manual"
)

// SARFeatures are the radar-derived shape metrics of a detection.
type SARFeatures struct {
	Area        float64 `json:"area"`        // square metres
	Intensity   float64 `json:"intensity"`   // backscatter
	Elongation  float64 `json:"elongation"`  // length/width ratio
	Backscatter float64 `json:"backscatter"` // dB
	Confidence  float64 `json:"confidence"`  // 0..1
}

type Review struct {
	Status     ReviewStatus `json:"status"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy string       `json:"reviewed_by,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}

type Detection struct {
	ID              string          `json:"id"`        // storage key (uuid)
	VesselID        string          `json:"vessel_id"` // e.g. "VSL-20260130-A001"
	Timestamp       time.Time       `json:"timestamp"`
	Latitude        float64         `json:"latitude"`
	Longitude       float64         `json:"longitude"`
	AISStatus       AISStatus       `json:"ais_status"`
	VesselSize      string          `json:"vessel_size,omitempty"` // free-form label, e.g. "Medium (30-40m)"
	SizeClass       SizeClass       `json:"size_class"`
	EstimatedLength int             `json:"estimated_length,omitempty"`
	ThreatScore     int             `json:"threat_score"`
	SAR             *SARFeatures    `json:"sar_features,omitempty"`
	InsideMPA       bool            `json:"inside_mpa"`
	MPAName         string          `json:"mpa_name,omitempty"`
	MaritimeZone    string          `json:"maritime_zone,omitempty"`
	Source          DetectionSource `json:"source"`
	Review          Review          `json:"review"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsAnomalous reports a radar contact with no matching AIS broadcast.
func (d *Detection) IsAnomalous() bool {
	return d.AISStatus == AISOff
}

func (d *Detection) Reviewed() bool {
	return d.Review.Status != "" && d.Review.Status != ReviewPending
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (d *Detection) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
	}
}

var lengthPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m\b`)

// ParseSizeClass derives a size class from labels such as "Small (15-25m)"
// or "38m". Bare lengths bucket at 30m and 45m.
func ParseSizeClass(label string) SizeClass {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return SizeUnknown
	case strings.Contains(l, "small"):
		return SizeSmall
	case strings.Contains(l, "medium"):
		return SizeMedium
	case strings.Contains(l, "large"):
		return SizeLarge
	}

	m := lengthPattern.FindStringSubmatch(l)
	if m == nil {
		return SizeUnknown
	}
	length, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return SizeUnknown
	}
	return SizeClassForLength(length)
}

func SizeClassForLength(meters float64) SizeClass {
	switch {
	case meters <= 0:
		return SizeUnknown
	case meters < 30:
		return SizeSmall
	case meters < 45:
		return SizeMedium
	default:
		return SizeLarge
	}
}

func ParseAISStatus(s string) (AISStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return AISOn, true
	case "OFF":
		return AISOff, true
	default:
		return "", false
	}
}

func ParseReviewStatus(s string) (ReviewStatus, bool) {
	switch ReviewStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ReviewPending:
		return ReviewPending, true
	case ReviewConfirmed:
		return ReviewConfirmed, true
	case ReviewDismissed:
		return ReviewDismissed, true
	default:
		return "", false
	}
}
