package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

// MemoryStore keeps every table in process memory. It backs mock mode and
// the tests of packages that need a Store.
type MemoryStore struct {
	mu         sync.RWMutex
	detections map[string]models.Detection
	actions    []models.AnalystAction
	tags       []models.DetectionTag
	vessels    []models.Vessel
	mpas       []models.MarineProtectedArea
	positions  []models.PositionFix
	reports    []models.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		detections: make(map[string]models.Detection),
	}
}

func (m *MemoryStore) AddDetection(ctx context.Context, d *models.Detection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, ok := m.detections[d.ID]; ok {
		return ErrDuplicate
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	if d.Review.Status == "" {
		d.Review.Status = models.ReviewPending
	}
	m.detections[d.ID] = *d
	return nil
}

func (m *MemoryStore) GetDetection(ctx context.Context, id string) (*models.Detection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.detections[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryStore) DetectionExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.detections[id]
	return ok, nil
}

func (m *MemoryStore) ListDetections(ctx context.Context, opts Filter) ([]models.Detection, error) {
	m.mu.RLock()
	results := make([]models.Detection, 0, len(m.detections))
	for _, d := range m.detections {
		if opts.matches(&d) {
			results = append(results, d)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(results, func(a, b models.Detection) int {
		if opts.OrderByUpdated {
			if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
				return c
			}
		} else if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return opts.page(results), nil
}

func (m *MemoryStore) UpdateReview(ctx context.Context, ids []string, u ReviewUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, id := range ids {
		d, ok := m.detections[id]
		if !ok || d.Reviewed() {
			continue
		}
		at := u.ReviewedAt
		d.Review = models.Review{
			Status:     u.Status,
			ReviewedAt: &at,
			ReviewedBy: u.ReviewedBy,
			Notes:      u.Notes,
		}
		d.UpdatedAt = u.ReviewedAt
		m.detections[id] = d
		n++
	}
	return n, nil
}

func (m *MemoryStore) DeleteDetection(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.detections[id]; !ok {
		return ErrNotFound
	}
	delete(m.detections, id)
	return nil
}

func (m *MemoryStore) AddActions(ctx context.Context, actions []models.AnalystAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range actions {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		m.actions = append(m.actions, a)
	}
	return nil
}

func (m *MemoryStore) ListActions(ctx context.Context, detectionID string) ([]models.AnalystAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.AnalystAction
	for _, a := range m.actions {
		if a.DetectionID == detectionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) AddTags(ctx context.Context, tags []models.DetectionTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tags {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		m.tags = append(m.tags, t)
	}
	return nil
}

func (m *MemoryStore) ListTags(ctx context.Context, detectionID string) ([]models.DetectionTag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.DetectionTag
	for _, t := range m.tags {
		if t.DetectionID == detectionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStore) AddVessel(ctx context.Context, v *models.Vessel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	m.vessels = append(m.vessels, *v)
	return nil
}

// ListVessels returns the registry newest first.
func (m *MemoryStore) ListVessels(ctx context.Context) ([]models.Vessel, error) {
	m.mu.RLock()
	out := slices.Clone(m.vessels)
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Vessel) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) AddMPA(ctx context.Context, mpa *models.MarineProtectedArea) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mpa.ID == "" {
		mpa.ID = uuid.NewString()
	}
	m.mpas = append(m.mpas, *mpa)
	return nil
}

func (m *MemoryStore) ListMPAs(ctx context.Context) ([]models.MarineProtectedArea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.mpas), nil
}

func (m *MemoryStore) AddPosition(ctx context.Context, p *models.PositionFix) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.positions = append(m.positions, *p)
	return nil
}

// ListPositions returns fixes at or after since, oldest first.
func (m *MemoryStore) ListPositions(ctx context.Context, vesselID string, since time.Time) ([]models.PositionFix, error) {
	m.mu.RLock()
	var out []models.PositionFix
	for _, p := range m.positions {
		if p.VesselID == vesselID && !p.Timestamp.Before(since) {
			out = append(out, p)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.PositionFix) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (m *MemoryStore) AddReport(ctx context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.reports = append(m.reports, *r)
	return nil
}

func (m *MemoryStore) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	m.mu.RLock()
	out := slices.Clone(m.reports)
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Report) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (f Filter) matches(d *models.Detection) bool {
	if f.Since != nil && d.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !d.Timestamp.Before(*f.Until) {
		return false
	}
	if f.UpdatedSince != nil && !d.UpdatedAt.After(*f.UpdatedSince) {
		return false
	}
	if f.Review != nil && d.Review.Status != *f.Review {
		return false
	}
	if f.AIS != nil && d.AISStatus != *f.AIS {
		return false
	}
	if f.MinThreat != nil && d.ThreatScore < *f.MinThreat {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, d.ID) {
		return false
	}
	return true
}

func (f Filter) page(ds []models.Detection) []models.Detection {
	if f.Offset > 0 {
		if f.Offset >= len(ds) {
			return []models.Detection{}
		}
		ds = ds[f.Offset:]
	}
	if f.Limit > 0 && len(ds) > f.Limit {
		ds = ds[:f.Limit]
	}
	return ds
}
