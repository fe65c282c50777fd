// Package simulation produces synthetic SAR/AIS detections for mock mode.
package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

const aisOffProbability = 0.6

// Generator is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	counter int
}

// NewGenerator seeds the generator; seed 0 picks a random seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: newRand(seed)}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x5eed))
}

// Next synthesizes one detection observed at now.
func (g *Generator) Next(now time.Time) *models.Detection {
	g.mu.Lock()
	defer g.mu.Unlock()

	zone := MaritimeZones[g.rng.IntN(len(MaritimeZones))]
	lat := round(zone.LatMin+g.rng.Float64()*(zone.LatMax-zone.LatMin), 4)
	lon := round(zone.LonMin+g.rng.Float64()*(zone.LonMax-zone.LonMin), 4)

	ais := models.AISOn
	if g.rng.Float64() < aisOffProbability {
		ais = models.AISOff
	}
	size := vesselSizes[g.rng.IntN(len(vesselSizes))]
	base := 20 + g.rng.IntN(40)

	g.counter++
	d := &models.Detection{
		ID:           uuid.NewString(),
		VesselID:     VesselID(now, 'A', g.counter),
		Timestamp:    now.UTC(),
		Latitude:     lat,
		Longitude:    lon,
		AISStatus:    ais,
		VesselSize:   size,
		SizeClass:    models.ParseSizeClass(size),
		ThreatScore:  threat.Heuristic(base, ais, zone.MPA),
		InsideMPA:    zone.MPA,
		MaritimeZone: zone.Name,
		Source:       models.SourceSimulated,
		Review:       models.Review{Status: models.ReviewPending},
		UpdatedAt:    now.UTC(),
		SAR: &models.SARFeatures{
			Area:        round(150+g.rng.Float64()*400, 2),
			Intensity:   round(-16+g.rng.Float64()*8, 2),
			Elongation:  round(2+g.rng.Float64()*2, 2),
			Backscatter: round(-16+g.rng.Float64()*8, 2),
			Confidence:  round(0.75+g.rng.Float64()*0.24, 2),
		},
	}
	if zone.MPA {
		d.MPAName = zone.Name
	}
	return d
}

// Batch returns n detections, newest first, spaced one minute apart.
func (g *Generator) Batch(n int, now time.Time) []*models.Detection {
	out := make([]*models.Detection, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Next(now.Add(-time.Duration(i)*time.Minute)))
	}
	return out
}

// VesselID formats identifiers like "VSL-20260130-A001". The kind letter is
// 'A' for automated detections and 'M' for manual entries.
func VesselID(t time.Time, kind byte, seq int) string {
	return fmt.Sprintf("VSL-%s-%c%03d", t.UTC().Format("20060102"), kind, seq)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
