package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/geo"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/stream"
	"github.com/mr1hm/sentinel-sea/internal/worker"
)

// Source produces detection changes on a fixed interval.
type Source interface {
	Name() string
	Interval() time.Duration
	Poll(ctx context.Context, now time.Time) (Batch, error)
}

// Batch is the result of one poll. Persisted batches already reflect the
// store and are only fanned out.
type Batch struct {
	Events    []models.ChangeEvent
	Persisted bool
}

// Alerter is told about every newly ingested detection.
type Alerter interface {
	Alert(ctx context.Context, d models.Detection) error
}

// Recorder receives ingestion counters.
type Recorder interface {
	DetectionIngested(source string, ais models.AISStatus)
	PollFailed(source string)
}

type job struct {
	source    string
	event     models.ChangeEvent
	persisted bool
}

type Manager struct {
	cfg         *config.Config
	store       repository.Store
	broadcaster *stream.Broadcaster
	sources     []Source
	alerter     Alerter
	recorder    Recorder
	index       *geo.Index
	now         func() time.Time

	pool   *worker.Pool[job]
	wg     sync.WaitGroup
	paused atomic.Bool

	mu       sync.RWMutex
	statuses map[string]*Status
}

type Option func(*Manager)

func WithSources(sources ...Source) Option {
	return func(m *Manager) { m.sources = append(m.sources, sources...) }
}

func WithAlerter(a Alerter) Option {
	return func(m *Manager) { m.alerter = a }
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithIndex resolves MPA membership for detections that arrive without it.
func WithIndex(idx *geo.Index) Option {
	return func(m *Manager) { m.index = idx }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires an ingestion manager. store must accept writes for
// sources that are not persisted.
func NewManager(cfg *config.Config, store repository.Store, broadcaster *stream.Broadcaster, opts ...Option) *Manager {
	m := &Manager{
		cfg:         cfg,
		store:       store,
		broadcaster: broadcaster,
		now:         func() time.Time { return time.Now().UTC() },
		statuses:    make(map[string]*Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, src := range m.sources {
		m.statuses[src.Name()] = &Status{Source: src.Name(), State: StateActive, Interval: src.Interval()}
	}
	return m
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.process)
	m.pool.OnError(func(j job, err error) {
		slog.Error("error processing detection", "source", j.source, "type", j.event.Type, "error", err)
	})
	m.pool.Start(ctx)

	for _, src := range m.sources {
		m.wg.Add(1)
		go m.runPoller(ctx, src)
	}
}

func (m *Manager) runPoller(ctx context.Context, src Source) {
	defer m.wg.Done()
	slog.Info("starting poller", "source", src.Name(), "interval", src.Interval())

	ticker := time.NewTicker(src.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down", "source", src.Name())
			return
		case <-ticker.C:
			if m.paused.Load() {
				continue
			}
			m.poll(ctx, src)
		}
	}
}

func (m *Manager) poll(ctx context.Context, src Source) {
	slog.Debug("polling", "source", src.Name())

	now := m.now()
	batch, err := src.Poll(ctx, now)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("poll failed", "source", src.Name(), "error", err)
		m.setStatus(src.Name(), func(s *Status) {
			s.State = StateError
			s.LastPoll = now
			s.LastError = err.Error()
		})
		if m.recorder != nil {
			m.recorder.PollFailed(src.Name())
		}
		return
	}

	for _, e := range batch.Events {
		if err := m.pool.Submit(ctx, job{source: src.Name(), event: e, persisted: batch.Persisted}); err != nil {
			return
		}
	}

	m.setStatus(src.Name(), func(s *Status) {
		if s.State != StatePaused {
			s.State = StateActive
		}
		s.LastPoll = now
		s.LastError = ""
		s.Count += int64(len(batch.Events))
	})
	slog.Debug("poll complete", "source", src.Name(), "count", len(batch.Events))
}

func (m *Manager) process(ctx context.Context, j job) error {
	e := j.event

	if e.Type == models.ChangeInsert && e.Detection != nil {
		d := e.Detection
		if m.index != nil && !d.InsideMPA {
			if mpa, ok := m.index.Locate(d.Latitude, d.Longitude); ok {
				d.InsideMPA = true
				d.MPAName = mpa.Name
			}
		}

		if !j.persisted {
			exists, err := m.store.DetectionExists(ctx, d.ID)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
			if err := m.store.AddDetection(ctx, d); err != nil {
				return err
			}
			m.Known(*d)
			if err := m.store.AddPosition(ctx, &models.PositionFix{
				VesselID:  d.VesselID,
				Latitude:  d.Latitude,
				Longitude: d.Longitude,
				Timestamp: d.Timestamp,
			}); err != nil {
				slog.Warn("error recording position", "vessel_id", d.VesselID, "error", err)
			}
		}

		if m.recorder != nil {
			m.recorder.DetectionIngested(j.source, d.AISStatus)
		}
		if m.alerter != nil {
			if err := m.alerter.Alert(ctx, *d); err != nil {
				slog.Warn("error sending alert", "vessel_id", d.VesselID, "error", err)
			}
		}
		slog.Info("added detection", "vessel_id", d.VesselID, "source", j.source,
			"ais", d.AISStatus, "threat", d.ThreatScore, "inside_mpa", d.InsideMPA)
	}

	if m.broadcaster != nil {
		m.broadcaster.Broadcast(e)
	}
	return nil
}

type knower interface {
	Known(ds ...models.Detection)
}

// Known tells change watchers about rows this process wrote itself so they
// are not reported back as new changes.
func (m *Manager) Known(ds ...models.Detection) {
	for _, src := range m.sources {
		if k, ok := src.(knower); ok {
			k.Known(ds...)
		}
	}
}

// Pause stops polling without stopping the pollers. Resume restarts it.
func (m *Manager) Pause() {
	m.paused.Store(true)
	m.setAll(StatePaused)
	slog.Info("ingestion paused")
}

func (m *Manager) Resume() {
	m.paused.Store(false)
	m.setAll(StateActive)
	slog.Info("ingestion resumed")
}

// Toggle flips between live and paused and reports the new live state.
func (m *Manager) Toggle() bool {
	if m.Live() {
		m.Pause()
		return false
	}
	m.Resume()
	return true
}

func (m *Manager) Live() bool {
	return !m.paused.Load()
}

func (m *Manager) Statuses() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.sources))
	for _, src := range m.sources {
		out = append(out, *m.statuses[src.Name()])
	}
	return out
}

// LastPoll is the most recent successful or failed poll of any source.
func (m *Manager) LastPoll() time.Time {
	var last time.Time
	for _, s := range m.Statuses() {
		if s.LastPoll.After(last) {
			last = s.LastPoll
		}
	}
	return last
}

func (m *Manager) setStatus(name string, fn func(*Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.statuses[name]; ok {
		fn(s)
	}
}

func (m *Manager) setAll(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.statuses {
		if state == StateActive && s.LastError != "" {
			s.State = StateError
			continue
		}
		s.State = state
	}
}

func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("ingestion manager stopped")
}
