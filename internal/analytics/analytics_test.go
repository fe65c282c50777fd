package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

func TestCompute(t *testing.T) {
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)
	ds := []models.Detection{
		{ThreatScore: 90, AISStatus: models.AISOff, InsideMPA: true, Timestamp: now.Add(-time.Hour), Review: models.Review{Status: models.ReviewPending}},
		{ThreatScore: 70, AISStatus: models.AISOff, Timestamp: now.Add(-2 * time.Hour), Review: models.Review{Status: models.ReviewConfirmed}},
		{ThreatScore: 45, AISStatus: models.AISOn, Timestamp: now.Add(-30 * time.Hour), Review: models.Review{Status: models.ReviewPending}},
		{ThreatScore: 10, AISStatus: models.AISOn, InsideMPA: true, Timestamp: now.Add(-48 * time.Hour), Review: models.Review{Status: models.ReviewDismissed}},
	}

	s := Compute(ds, now)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Anomalous)
	assert.Equal(t, 2, s.HighThreat)
	assert.Equal(t, 1, s.MediumThreat)
	assert.Equal(t, 1, s.LowThreat)
	assert.Equal(t, 2, s.InMPA)
	assert.Equal(t, 2, s.Unreviewed)
	assert.Equal(t, 54, s.AvgThreat) // 215/4 = 53.75
	assert.Equal(t, 2, s.Last24h)
	assert.Equal(t, 50, s.AnomalousPercent)
	assert.Equal(t, 50, s.MPAPercent)
	assert.True(t, s.Elevated)

	require.Len(t, s.Distribution, 3)
	assert.Equal(t, "High", s.Distribution[0].Label)
	assert.InDelta(t, 50.0, s.Distribution[0].Percent, 0.001)
	assert.InDelta(t, 25.0, s.Distribution[2].Percent, 0.001)
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, time.Now())

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.AvgThreat)
	assert.Equal(t, 0, s.AnomalousPercent)
	assert.False(t, s.Elevated)
	for _, b := range s.Distribution {
		assert.Equal(t, 0.0, b.Percent)
	}
}

func TestHeatmap(t *testing.T) {
	ds := []models.Detection{
		{Latitude: 9.1, Longitude: 79.2, ThreatScore: 80},
		{Latitude: 0, Longitude: 79.2, ThreatScore: 50},
		{Latitude: math.NaN(), Longitude: 79.2, ThreatScore: 50},
		{Latitude: 12.5, Longitude: 93.1, ThreatScore: 25},
	}

	pts := Heatmap(ds)
	require.Len(t, pts, 2)
	assert.InDelta(t, 0.8, pts[0].Intensity, 1e-9)
	assert.InDelta(t, 0.25, pts[1].Intensity, 1e-9)
}

func TestRelativeAge(t *testing.T) {
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "12s ago", RelativeAge(now.Add(-12*time.Second), now))
	assert.Equal(t, "3m ago", RelativeAge(now.Add(-200*time.Second), now))
	assert.Equal(t, "5h ago", RelativeAge(now.Add(-5*time.Hour), now))
	assert.Equal(t, "2026-01-28 12:00 UTC", RelativeAge(now.Add(-48*time.Hour), now))
	assert.Equal(t, "just now", RelativeAge(now.Add(time.Second), now))
}
