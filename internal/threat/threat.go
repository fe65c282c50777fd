// Package threat holds the fixed heuristics used to score detections.
package threat

import (
	"math"
	"math/rand/v2"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

type ThreatLevel string

const (
	LevelHigh   ThreatLevel = "HIGH"
	LevelMedium ThreatLevel = "MEDIUM"
	LevelLow    ThreatLevel = "LOW"
)

const (
	HighThreshold   = 70
	MediumThreshold = 40

	aisOffBonus = 30
	mpaBonus    = 20
)

func Level(score int) ThreatLevel {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Heuristic adds the AIS-off and protected-area bonuses to a base score and
// clamps the result to [0,100].
func Heuristic(base int, ais models.AISStatus, insideMPA bool) int {
	score := base
	if ais == models.AISOff {
		score += aisOffBonus
	}
	if insideMPA {
		score += mpaBonus
	}
	return Clamp(score)
}

func SizeBase(class models.SizeClass) int {
	switch class {
	case models.SizeSmall:
		return 20
	case models.SizeMedium:
		return 35
	case models.SizeLarge:
		return 50
	default:
		return 30
	}
}

// Score is the deterministic score for a detection whose source supplied none.
func Score(d *models.Detection) int {
	class := d.SizeClass
	if class == "" || class == models.SizeUnknown {
		class = models.ParseSizeClass(d.VesselSize)
	}
	return Heuristic(SizeBase(class), d.AISStatus, d.InsideMPA)
}

func Clamp(score int) int {
	return max(0, min(100, score))
}

// Classification is the SAR classifier output for a dark vessel.
type Classification struct {
	SizeLabel       string
	SizeClass       models.SizeClass
	EstimatedLength int
	ThreatScore     int
}

// ClassifySAR buckets the target area into a size class and scales the base
// threat by backscatter intensity (expected range 100-255).
func ClassifySAR(area, intensity float64) Classification {
	var c Classification
	var base float64
	switch {
	case area < 150:
		c.SizeLabel, c.SizeClass, base = "Small", models.SizeSmall, 0.3
	case area < 300:
		c.SizeLabel, c.SizeClass, base = "Medium", models.SizeMedium, 0.6
	default:
		c.SizeLabel, c.SizeClass, base = "Large", models.SizeLarge, 0.9
	}

	intensityFactor := (intensity - 100) / 155
	raw := (base + intensityFactor*0.3) * 100
	c.ThreatScore = Clamp(int(math.Trunc(math.Max(0, math.Min(100, raw)))))
	c.EstimatedLength = int(area / 10)
	return c
}

// CooperativeScore is the low score given to vessels broadcasting AIS.
func CooperativeScore(rng *rand.Rand) int {
	return 5 + rng.IntN(16)
}
