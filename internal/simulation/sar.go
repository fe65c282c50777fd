package simulation

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

const aisMatchProbability = 0.7

// SARPipeline mimics the SAR detection → AIS matching → classification chain
// of the ground segment.
type SARPipeline struct {
	mu      sync.Mutex
	rng     *rand.Rand
	counter int
}

func NewSARPipeline(seed int64) *SARPipeline {
	return &SARPipeline{rng: newRand(seed)}
}

func (p *SARPipeline) Next(now time.Time) *models.Detection {
	p.mu.Lock()
	defer p.mu.Unlock()

	zone := oceanZones[p.rng.IntN(len(oceanZones))]
	lat := round(zone.LatMin+p.rng.Float64()*(zone.LatMax-zone.LatMin), 4)
	lon := round(zone.LonMin+p.rng.Float64()*(zone.LonMax-zone.LonMin), 4)
	area := round(50+p.rng.Float64()*450, 2)
	intensity := round(100+p.rng.Float64()*155, 2)
	elongation := round(2.5+p.rng.Float64()*3.5, 2)

	p.counter++
	d := &models.Detection{
		ID:           uuid.NewString(),
		VesselID:     VesselID(now, 'A', p.counter),
		Timestamp:    now.UTC(),
		Latitude:     lat,
		Longitude:    lon,
		MaritimeZone: zone.Name,
		Source:       models.SourceSAR,
		Review:       models.Review{Status: models.ReviewPending},
		UpdatedAt:    now.UTC(),
	}

	if p.rng.Float64() < aisMatchProbability {
		d.AISStatus = models.AISOn
		d.SizeClass = models.SizeUnknown
		d.ThreatScore = threat.CooperativeScore(p.rng)
		return d
	}

	c := threat.ClassifySAR(area, intensity)
	d.AISStatus = models.AISOff
	d.VesselSize = c.SizeLabel
	d.SizeClass = c.SizeClass
	d.EstimatedLength = c.EstimatedLength
	d.ThreatScore = c.ThreatScore
	d.SAR = &models.SARFeatures{
		Area:       area,
		Intensity:  intensity,
		Elongation: elongation,
	}
	return d
}
