package models

import (
	"strings"
	"time"
)

type TrustLevel string

const (
	TrustWhitelisted TrustLevel = "whitelisted"
	TrustTrusted     TrustLevel = "trusted"
	TrustUnknown     TrustLevel = "unknown"
	TrustSuspicious  TrustLevel = "suspicious"
	TrustBlacklisted TrustLevel = "blacklisted"
)

func ParseTrustLevel(s string) (TrustLevel, bool) {
	switch t := TrustLevel(strings.ToLower(strings.TrimSpace(s))); t {
	case TrustWhitelisted, TrustTrusted, TrustUnknown, TrustSuspicious, TrustBlacklisted:
		return t, true
	default:
		return "", false
	}
}

// Vessel is a vessel registry record.
type Vessel struct {
	ID         string     `json:"id"`
	VesselID   string     `json:"vessel_id"`
	Name       string     `json:"vessel_name"`
	MMSI       string     `json:"mmsi,omitempty"`
	IMO        string     `json:"imo,omitempty"`
	Flag       string     `json:"flag,omitempty"`
	Type       string     `json:"vessel_type,omitempty"`
	LengthM    float64    `json:"length_m,omitempty"`
	TrustLevel TrustLevel `json:"trust_level"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PositionFix is one point of a vessel's movement history.
type PositionFix struct {
	ID         string    `json:"id"`
	VesselID   string    `json:"vessel_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	SpeedKnots float64   `json:"speed_knots,omitempty"`
	Heading    float64   `json:"heading,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// MarineProtectedArea is a named zone polygon. Coordinates are
// [latitude, longitude] pairs.
type MarineProtectedArea struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Coordinates [][2]float64 `json:"coordinates"`
	Established int          `json:"established,omitempty"`
	Area        string       `json:"area,omitempty"`
}
