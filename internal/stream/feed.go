package stream

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

// Feed is the bounded, newest-first list of detections shown live.
type Feed struct {
	mu       sync.RWMutex
	items    []models.Detection
	limit    int
	lastSeen time.Time
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit}
}

// Reset replaces the feed contents with ds, which must already be newest
// first.
func (f *Feed) Reset(ds []models.Detection) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(ds) > f.limit {
		ds = ds[:f.limit]
	}
	f.items = slices.Clone(ds)
	f.lastSeen = time.Now()
}

// Apply folds one change into the feed. Inserts of IDs already present and
// updates or deletes of unknown IDs are ignored.
func (f *Feed) Apply(e models.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastSeen = time.Now()

	switch e.Type {
	case models.ChangeInsert:
		if e.Detection == nil || f.index(e.Detection.ID) >= 0 {
			return
		}
		f.items = slices.Insert(f.items, 0, *e.Detection)
		if len(f.items) > f.limit {
			f.items = f.items[:f.limit]
		}
	case models.ChangeUpdate:
		if e.Detection == nil {
			return
		}
		if i := f.index(e.Detection.ID); i >= 0 {
			f.items[i] = *e.Detection
		}
	case models.ChangeDelete:
		if i := f.index(e.OldID); i >= 0 {
			f.items = slices.Delete(f.items, i, i+1)
		}
	}
}

func (f *Feed) index(id string) int {
	return slices.IndexFunc(f.items, func(d models.Detection) bool { return d.ID == id })
}

func (f *Feed) Snapshot() []models.Detection {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.items)
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// LastUpdate is when the feed last changed or was reset.
func (f *Feed) LastUpdate() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastSeen
}

// Run applies events from b until ctx is done or b is closed.
func (f *Feed) Run(ctx context.Context, b *Broadcaster) {
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			f.Apply(e)
		}
	}
}
