package api

import (
	"strings"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(detections []models.Detection) FeatureCollection {
	features := make([]Feature, 0, len(detections))

	for _, d := range detections {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{d.Longitude, d.Latitude},
			},
			Properties: map[string]any{
				"id":            d.ID,
				"vessel_id":     d.VesselID,
				"ais_status":    d.AISStatus,
				"vessel_size":   d.VesselSize,
				"threat_score":  d.ThreatScore,
				"threat_level":  strings.ToLower(string(threat.Level(d.ThreatScore))),
				"inside_mpa":    d.InsideMPA,
				"mpa_name":      d.MPAName,
				"review_status": d.Review.Status,
				"source":        d.Source,
				"timestamp":     d.Timestamp,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
