// Package reference serves the vessel registry and protected-area catalogue.
// Both tables are small and fetched whole, so they are cached for a TTL.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/sentinel-sea/internal/filter"
	"github.com/mr1hm/sentinel-sea/internal/geo"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
)

const (
	keyVessels = "vessels"
	keyMPAs    = "mpas"
)

// Ranges are the supported history windows.
var Ranges = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

const DefaultRange = "24h"

type Catalogue struct {
	store repository.Store
	index *geo.Index
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// New builds a catalogue over store. index is rebuilt whenever the MPA table
// is reloaded.
func New(store repository.Store, index *geo.Index, ttl time.Duration) *Catalogue {
	return &Catalogue{
		store: store,
		index: index,
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Refresh reloads both tables.
func (c *Catalogue) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.loadVessels(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.loadMPAs(ctx)
		return err
	})
	return g.Wait()
}

// Run refreshes both tables every interval until ctx is done, so the MPA
// index follows table edits without waiting for a read.
func (c *Catalogue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("error refreshing reference data", "error", err)
			}
		}
	}
}

// Invalidate drops the cached tables so the next read goes to the store.
func (c *Catalogue) Invalidate() {
	c.cache.Flush()
}

func (c *Catalogue) Vessels(ctx context.Context, criteria filter.VesselCriteria) ([]models.Vessel, error) {
	vs, err := c.vessels(ctx)
	if err != nil {
		return nil, err
	}
	return criteria.Apply(vs), nil
}

// Vessel looks up a registry record by its vessel id, ignoring case.
func (c *Catalogue) Vessel(ctx context.Context, vesselID string) (*models.Vessel, error) {
	vs, err := c.vessels(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range vs {
		if strings.EqualFold(v.VesselID, vesselID) {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *Catalogue) MPAs(ctx context.Context) ([]models.MarineProtectedArea, error) {
	if v, ok := c.cache.Get(keyMPAs); ok {
		return v.([]models.MarineProtectedArea), nil
	}
	return c.loadMPAs(ctx)
}

func (c *Catalogue) vessels(ctx context.Context) ([]models.Vessel, error) {
	if v, ok := c.cache.Get(keyVessels); ok {
		return v.([]models.Vessel), nil
	}
	return c.loadVessels(ctx)
}

func (c *Catalogue) loadVessels(ctx context.Context) ([]models.Vessel, error) {
	vs, err := c.store.ListVessels(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading vessel registry: %w", err)
	}
	if vs == nil {
		vs = []models.Vessel{}
	}
	c.cache.Set(keyVessels, vs, c.ttl)
	slog.Debug("vessel registry loaded", "count", len(vs))
	return vs, nil
}

// loadMPAs falls back to the built-in areas when the table is empty.
func (c *Catalogue) loadMPAs(ctx context.Context) ([]models.MarineProtectedArea, error) {
	mpas, err := c.store.ListMPAs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading protected areas: %w", err)
	}
	if len(mpas) == 0 {
		mpas = geo.DefaultMPAs()
	}
	c.cache.Set(keyMPAs, mpas, c.ttl)
	if c.index != nil {
		c.index.Replace(mpas)
	}
	slog.Debug("protected areas loaded", "count", len(mpas))
	return mpas, nil
}

// Track summarises a vessel's movement over a window.
type Track struct {
	Points     int        `json:"points"`
	DistanceKm float64    `json:"distance_km"`
	FirstSeen  *time.Time `json:"first_seen,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}

type History struct {
	VesselID  string               `json:"vessel_id"`
	Range     string               `json:"range"`
	Vessel    *models.Vessel       `json:"vessel,omitempty"`
	Positions []models.PositionFix `json:"positions"`
	Track     Track                `json:"track"`
}

// VesselHistory returns the positions of vesselID inside the window named by
// rng, oldest first. Unknown windows fall back to DefaultRange.
func (c *Catalogue) VesselHistory(ctx context.Context, vesselID, rng string) (*History, error) {
	window, ok := Ranges[rng]
	if !ok {
		rng, window = DefaultRange, Ranges[DefaultRange]
	}

	fixes, err := c.store.ListPositions(ctx, vesselID, c.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("error loading position history: %w", err)
	}
	if fixes == nil {
		fixes = []models.PositionFix{}
	}

	h := &History{
		VesselID:  vesselID,
		Range:     rng,
		Positions: fixes,
		Track:     Summarize(fixes),
	}
	if v, err := c.Vessel(ctx, vesselID); err == nil {
		h.Vessel = v
	}
	return h, nil
}

// Summarize expects fixes ordered oldest first.
func Summarize(fixes []models.PositionFix) Track {
	t := Track{Points: len(fixes)}
	if len(fixes) == 0 {
		return t
	}

	var km float64
	for i := 1; i < len(fixes); i++ {
		a, b := fixes[i-1], fixes[i]
		km += geo.DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	t.DistanceKm = math.Round(km*100) / 100

	first, last := fixes[0].Timestamp, fixes[len(fixes)-1].Timestamp
	t.FirstSeen, t.LastSeen = &first, &last
	return t
}
