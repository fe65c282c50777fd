package reference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/sentinel-sea/internal/filter"
	"github.com/mr1hm/sentinel-sea/internal/geo"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
)

var now = time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

// countingStore counts registry reads.
type countingStore struct {
	repository.Store
	vesselReads int
	mpaReads    int
	fail        error
}

func (s *countingStore) ListVessels(ctx context.Context) ([]models.Vessel, error) {
	s.vesselReads++
	if s.fail != nil {
		return nil, s.fail
	}
	return s.Store.ListVessels(ctx)
}

func (s *countingStore) ListMPAs(ctx context.Context) ([]models.MarineProtectedArea, error) {
	s.mpaReads++
	return s.Store.ListMPAs(ctx)
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	for _, v := range []models.Vessel{
		{VesselID: "VSL-REG-001", Name: "Sea Falcon", TrustLevel: models.TrustTrusted, CreatedAt: now.Add(-2 * time.Hour)},
		{VesselID: "VSL-REG-002", Name: "Night Heron", TrustLevel: models.TrustSuspicious, CreatedAt: now.Add(-time.Hour)},
	} {
		require.NoError(t, mem.AddVessel(ctx, &v))
	}
	return &countingStore{Store: mem}
}

func TestCatalogue_VesselsAreCached(t *testing.T) {
	store := newStore(t)
	c := New(store, nil, time.Minute)
	ctx := context.Background()

	vs, err := c.Vessels(ctx, filter.VesselCriteria{})
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	vs, err = c.Vessels(ctx, filter.VesselCriteria{Search: "heron"})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "VSL-REG-002", vs[0].VesselID)

	vs, err = c.Vessels(ctx, filter.VesselCriteria{Trust: "trusted"})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "Sea Falcon", vs[0].Name)

	assert.Equal(t, 1, store.vesselReads, "registry should be read once within the TTL")

	c.Invalidate()
	_, err = c.Vessels(ctx, filter.VesselCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 2, store.vesselReads)
}

func TestCatalogue_Vessel(t *testing.T) {
	c := New(newStore(t), nil, time.Minute)

	v, err := c.Vessel(context.Background(), "vsl-reg-001")
	require.NoError(t, err)
	assert.Equal(t, "Sea Falcon", v.Name)

	_, err = c.Vessel(context.Background(), "VSL-NOPE")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCatalogue_LoadErrorIsWrapped(t *testing.T) {
	store := newStore(t)
	store.fail = errors.New("connection refused")
	c := New(store, nil, time.Minute)

	_, err := c.Vessels(context.Background(), filter.VesselCriteria{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCatalogue_MPAsRebuildIndex(t *testing.T) {
	store := newStore(t)
	idx := geo.NewIndex(nil)
	c := New(store, idx, time.Minute)
	ctx := context.Background()

	// empty table falls back to the built-in areas
	mpas, err := c.MPAs(ctx)
	require.NoError(t, err)
	assert.Len(t, mpas, 2)
	assert.Equal(t, 2, idx.Len())

	require.NoError(t, store.AddMPA(ctx, &models.MarineProtectedArea{
		Name:        "Andaman Reserve",
		Coordinates: [][2]float64{{11, 92}, {11, 94}, {13, 94}, {13, 92}},
	}))
	mpas, err = c.MPAs(ctx)
	require.NoError(t, err)
	assert.Len(t, mpas, 2, "cached until refresh")

	require.NoError(t, c.Refresh(ctx))
	mpas, err = c.MPAs(ctx)
	require.NoError(t, err)
	require.Len(t, mpas, 1)
	mpa, ok := idx.Locate(12, 93)
	require.True(t, ok)
	assert.Equal(t, "Andaman Reserve", mpa.Name)
	assert.Equal(t, 2, store.mpaReads)
}

func TestCatalogue_RunRebuildsIndex(t *testing.T) {
	store := newStore(t)
	idx := geo.NewIndex(geo.DefaultMPAs())
	c := New(store, idx, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, store.AddMPA(ctx, &models.MarineProtectedArea{
		Name:        "Andaman Reserve",
		Coordinates: [][2]float64{{11, 92}, {11, 94}, {13, 94}, {13, 92}},
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		_, ok := idx.Locate(12, 93)
		return ok
	}, 2*time.Second, 5*time.Millisecond, "index picks up the new area without a read")

	cancel()
	<-done
}

func TestCatalogue_VesselHistory(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for i, ts := range []time.Time{now.Add(-48 * time.Hour), now.Add(-2 * time.Hour), now.Add(-time.Hour)} {
		require.NoError(t, store.AddPosition(ctx, &models.PositionFix{
			VesselID:  "VSL-REG-001",
			Latitude:  9.0 + float64(i)*0.5,
			Longitude: 79.0,
			Timestamp: ts,
		}))
	}

	c := New(store, nil, time.Minute)
	c.now = func() time.Time { return now }

	h, err := c.VesselHistory(ctx, "VSL-REG-001", "24h")
	require.NoError(t, err)
	assert.Equal(t, "24h", h.Range)
	require.Len(t, h.Positions, 2)
	assert.Equal(t, 2, h.Track.Points)
	assert.InDelta(t, 55.6, h.Track.DistanceKm, 0.5)
	assert.Equal(t, now.Add(-2*time.Hour), *h.Track.FirstSeen)
	assert.Equal(t, now.Add(-time.Hour), *h.Track.LastSeen)
	require.NotNil(t, h.Vessel)
	assert.Equal(t, "Sea Falcon", h.Vessel.Name)

	h, err = c.VesselHistory(ctx, "VSL-REG-001", "7d")
	require.NoError(t, err)
	assert.Equal(t, 3, h.Track.Points)

	h, err = c.VesselHistory(ctx, "VSL-UNKNOWN", "forever")
	require.NoError(t, err)
	assert.Equal(t, DefaultRange, h.Range)
	assert.Empty(t, h.Positions)
	assert.Nil(t, h.Track.FirstSeen)
	assert.Nil(t, h.Vessel)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Track{}, Summarize(nil))
}
