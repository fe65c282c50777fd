package filter

import (
	"strings"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

// VesselCriteria narrows the vessel registry by id/name text and trust level.
type VesselCriteria struct {
	Search string
	Trust  string
}

func (c VesselCriteria) Matches(v *models.Vessel) bool {
	if c.Search != "" {
		q := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(v.VesselID), q) && !strings.Contains(strings.ToLower(v.Name), q) {
			return false
		}
	}
	if c.Trust != "" && c.Trust != All && string(v.TrustLevel) != c.Trust {
		return false
	}
	return true
}

func (c VesselCriteria) Apply(vs []models.Vessel) []models.Vessel {
	out := make([]models.Vessel, 0, len(vs))
	for i := range vs {
		if c.Matches(&vs[i]) {
			out = append(out, vs[i])
		}
	}
	return out
}
