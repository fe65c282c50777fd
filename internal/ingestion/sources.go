package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/simulation"
)

const (
	SourceSimulated = "simulated"
	SourceSAR       = "sar"
	SourceChanges   = "changes"
)

// SimulatedSource emits one synthetic detection per tick.
type SimulatedSource struct {
	gen      *simulation.Generator
	interval time.Duration
}

func NewSimulatedSource(gen *simulation.Generator, interval time.Duration) *SimulatedSource {
	return &SimulatedSource{gen: gen, interval: interval}
}

func (s *SimulatedSource) Name() string            { return SourceSimulated }
func (s *SimulatedSource) Interval() time.Duration { return s.interval }

func (s *SimulatedSource) Poll(ctx context.Context, now time.Time) (Batch, error) {
	return Batch{Events: []models.ChangeEvent{{Type: models.ChangeInsert, Detection: s.gen.Next(now)}}}, nil
}

// SARSource runs one pass of the SAR detection pipeline per tick.
type SARSource struct {
	pipeline *simulation.SARPipeline
	interval time.Duration
}

func NewSARSource(p *simulation.SARPipeline, interval time.Duration) *SARSource {
	return &SARSource{pipeline: p, interval: interval}
}

func (s *SARSource) Name() string            { return SourceSAR }
func (s *SARSource) Interval() time.Duration { return s.interval }

func (s *SARSource) Poll(ctx context.Context, now time.Time) (Batch, error) {
	return Batch{Events: []models.ChangeEvent{{Type: models.ChangeInsert, Detection: s.pipeline.Next(now)}}}, nil
}

const (
	changesPageSize = 500
	// changesMaxPages bounds one poll; a larger backlog resumes from the
	// cursor on the next poll.
	changesMaxPages = 20
)

// ChangesSource watches a shared store for rows written by other clients,
// turning them into INSERT and UPDATE events.
type ChangesSource struct {
	store    repository.DetectionRepository
	interval time.Duration

	mu     sync.Mutex
	cursor time.Time
	seen   map[string]time.Time
}

// NewChangesSource reports changes made after since.
func NewChangesSource(store repository.DetectionRepository, interval time.Duration, since time.Time) *ChangesSource {
	return &ChangesSource{
		store:    store,
		interval: interval,
		cursor:   since,
		seen:     make(map[string]time.Time),
	}
}

// Known marks ds as already delivered so the next poll does not report
// them again and later edits surface as updates.
func (s *ChangesSource) Known(ds ...models.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range ds {
		if prev, ok := s.seen[d.ID]; !ok || d.UpdatedAt.After(prev) {
			s.seen[d.ID] = d.UpdatedAt
		}
	}
}

func (s *ChangesSource) Name() string            { return SourceChanges }
func (s *ChangesSource) Interval() time.Duration { return s.interval }

// Poll reads changes oldest first, a page at a time, so the cursor never
// passes a row that has not been read.
func (s *ChangesSource) Poll(ctx context.Context, now time.Time) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Step back a little so rows sharing the cursor timestamp are not lost;
	// seen filters the repeats.
	since := s.cursor.Add(-time.Second)
	batch := Batch{Persisted: true}

	for page := 0; page < changesMaxPages; page++ {
		ds, err := s.store.ListDetections(ctx, repository.Filter{
			UpdatedSince:   &since,
			OrderByUpdated: true,
			Limit:          changesPageSize,
			Offset:         page * changesPageSize,
		})
		if err != nil {
			if len(batch.Events) > 0 {
				// keep what was read; the cursor only covers it
				slog.Warn("change poll cut short", "events", len(batch.Events), "error", err)
				break
			}
			return Batch{}, fmt.Errorf("error listing changes: %w", err)
		}

		for i := range ds {
			d := ds[i]
			if d.UpdatedAt.After(s.cursor) {
				s.cursor = d.UpdatedAt
			}
			prev, known := s.seen[d.ID]
			if known && !d.UpdatedAt.After(prev) {
				continue
			}
			s.seen[d.ID] = d.UpdatedAt

			e := models.ChangeEvent{Type: models.ChangeUpdate, Detection: &d}
			if !known && !d.Reviewed() {
				e.Type = models.ChangeInsert
			}
			batch.Events = append(batch.Events, e)
		}
		if len(ds) < changesPageSize {
			break
		}
	}

	s.prune(now)
	return batch, nil
}

// prune forgets rows that have not changed for a day.
func (s *ChangesSource) prune(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	for id, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, id)
		}
	}
}

// DefaultSources picks the sources for cfg's mode. Hosted deployments watch
// the backend for changes; local modes generate their own traffic.
func DefaultSources(cfg *config.Config, store repository.Store, now time.Time) []Source {
	var sources []Source

	switch cfg.Mode() {
	case config.ModeHosted:
		sources = append(sources, NewChangesSource(store, cfg.Backend.ChangePollInterval, now))
	default:
		sources = append(sources, NewSimulatedSource(simulation.NewGenerator(cfg.Mock.Seed), cfg.Mock.Interval))
	}
	if cfg.SAR.Enabled {
		sources = append(sources, NewSARSource(simulation.NewSARPipeline(cfg.Mock.Seed), cfg.SAR.Interval))
	}
	return sources
}

// Seed stores an initial batch of n synthetic detections spread over the
// last n minutes, with a position fix for each.
func Seed(ctx context.Context, store repository.Store, gen *simulation.Generator, n int, now time.Time) ([]models.Detection, error) {
	batch := gen.Batch(n, now)
	out := make([]models.Detection, 0, len(batch))
	for _, d := range batch {
		if err := store.AddDetection(ctx, d); err != nil {
			return nil, fmt.Errorf("error seeding detection %s: %w", d.VesselID, err)
		}
		if err := store.AddPosition(ctx, &models.PositionFix{
			VesselID:  d.VesselID,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Timestamp: d.Timestamp,
		}); err != nil {
			return nil, fmt.Errorf("error seeding position %s: %w", d.VesselID, err)
		}
		out = append(out, *d)
	}
	return out, nil
}
