package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/sentinel-sea/internal/ingestion"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/stream"
)

var now = time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

type countRecorder struct {
	mu     sync.Mutex
	counts map[models.ActionType]int
}

func (c *countRecorder) ReviewRecorded(action models.ActionType, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[models.ActionType]int)
	}
	c.counts[action] += n
}

func setup(t *testing.T, ids ...string) (*Reviewer, *repository.MemoryStore, *stream.Broadcaster) {
	t.Helper()
	store := repository.NewMemoryStore()
	for i, id := range ids {
		require.NoError(t, store.AddDetection(context.Background(), &models.Detection{
			ID:          id,
			VesselID:    "VSL-20260130-A00" + id,
			Timestamp:   now.Add(-time.Duration(i) * time.Minute),
			AISStatus:   models.AISOff,
			ThreatScore: 70,
		}))
	}
	b := stream.NewBroadcaster()
	t.Cleanup(b.Close)
	r := NewReviewer(store, b, &countRecorder{})
	r.now = func() time.Time { return now }
	return r, store, b
}

func TestConfirm(t *testing.T) {
	r, store, b := setup(t, "1")
	_, events := b.Subscribe()

	d, err := r.Confirm(context.Background(), "1", "analyst-001", "trawling inside park")
	require.NoError(t, err)

	assert.Equal(t, models.ReviewConfirmed, d.Review.Status)
	assert.Equal(t, "analyst-001", d.Review.ReviewedBy)
	assert.Equal(t, "trawling inside park", d.Review.Notes)
	require.NotNil(t, d.Review.ReviewedAt)
	assert.True(t, d.Review.ReviewedAt.Equal(now))

	actions, _ := store.ListActions(context.Background(), "1")
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionConfirmAnomaly, actions[0].ActionType)
	assert.Equal(t, "trawling inside park", actions[0].Notes)

	select {
	case e := <-events:
		assert.Equal(t, models.ChangeUpdate, e.Type)
		assert.Equal(t, models.ReviewConfirmed, e.Detection.Review.Status)
	default:
		t.Error("expected an UPDATE broadcast")
	}

	assert.Equal(t, 1, r.recorder.(*countRecorder).counts[models.ActionConfirmAnomaly])
}

func TestDismiss_Terminal(t *testing.T) {
	r, store, _ := setup(t, "1")
	ctx := context.Background()

	d, err := r.Dismiss(ctx, "1", "analyst-001", "")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewDismissed, d.Review.Status)

	_, err = r.Confirm(ctx, "1", "analyst-002", "")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	got, _ := store.GetDetection(ctx, "1")
	assert.Equal(t, models.ReviewDismissed, got.Review.Status, "a reviewed detection keeps its first decision")

	actions, _ := store.ListActions(ctx, "1")
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionDismissFalsePositive, actions[0].ActionType)
}

func TestConfirm_NotFound(t *testing.T) {
	r, _, _ := setup(t)
	_, err := r.Confirm(context.Background(), "missing", "analyst-001", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConfirm_ReadOnly(t *testing.T) {
	r, store, _ := setup(t, "1")
	r.store = repository.ReadOnly(store)

	_, err := r.Confirm(context.Background(), "1", "analyst-001", "")
	assert.ErrorIs(t, err, repository.ErrReadOnly)
}

func TestBulkConfirm(t *testing.T) {
	r, store, _ := setup(t, "1", "2", "3")
	ctx := context.Background()

	_, err := r.Dismiss(ctx, "2", "analyst-001", "")
	require.NoError(t, err)

	res, err := r.BulkConfirm(ctx, []string{"1", "2", "3", "missing", "1"}, "analyst-001", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, res.Updated)
	assert.ElementsMatch(t, []string{"2", "missing"}, res.Skipped)

	for _, id := range []string{"1", "3"} {
		d, _ := store.GetDetection(ctx, id)
		assert.Equal(t, models.ReviewConfirmed, d.Review.Status)
	}
	d, _ := store.GetDetection(ctx, "2")
	assert.Equal(t, models.ReviewDismissed, d.Review.Status)
}

func TestBulkDismiss_EmptySelection(t *testing.T) {
	r, _, _ := setup(t, "1")
	_, err := r.BulkDismiss(context.Background(), []string{" ", ""}, "analyst-001", "")
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestBulkTag(t *testing.T) {
	r, store, _ := setup(t, "1", "2")
	ctx := context.Background()

	res, err := r.BulkTag(ctx, []string{"1", "2", "missing"}, " Priority ", "analyst-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.Updated)
	assert.Equal(t, []string{"missing"}, res.Skipped)

	tags, _ := store.ListTags(ctx, "2")
	require.Len(t, tags, 1)
	assert.Equal(t, "priority", tags[0].Tag)

	_, err = r.BulkTag(ctx, []string{"1"}, "smuggling", "analyst-001")
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestHistory(t *testing.T) {
	r, _, _ := setup(t, "1")
	ctx := context.Background()

	trail, err := r.History(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, trail.Actions)
	assert.NotNil(t, trail.Tags)

	_, err = r.Confirm(ctx, "1", "analyst-001", "")
	require.NoError(t, err)
	_, err = r.BulkTag(ctx, []string{"1"}, "verified", "analyst-001")
	require.NoError(t, err)

	trail, err = r.History(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, trail.Actions, 1)
	assert.Len(t, trail.Tags, 1)

	_, err = r.History(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConfirm_NotEchoedByChangeWatcher(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"1", "2"} {
		require.NoError(t, store.AddDetection(ctx, &models.Detection{
			ID:          id,
			VesselID:    "VSL-20260130-A00" + id,
			Timestamp:   now.Add(-time.Hour),
			UpdatedAt:   now.Add(-time.Hour),
			AISStatus:   models.AISOff,
			ThreatScore: 70,
		}))
	}
	changes := ingestion.NewChangesSource(store, time.Second, now.Add(-2*time.Hour))
	batch, err := changes.Poll(ctx, now)
	require.NoError(t, err)
	require.Len(t, batch.Events, 2)

	r := NewReviewer(store, nil, nil, WithWatcher(changes))
	r.now = func() time.Time { return now.Add(time.Minute) }

	_, err = r.Confirm(ctx, "1", "analyst-001", "")
	require.NoError(t, err)
	res, err := r.BulkDismiss(ctx, []string{"2"}, "analyst-001", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, res.Updated)

	batch, err = changes.Poll(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, batch.Events, "local reviews are not reported back as changes")
}
