// Package review applies analyst decisions to detections and keeps the
// audit trail.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/stream"
)

var (
	// ErrAlreadyReviewed is returned when a detection is no longer pending.
	ErrAlreadyReviewed = errors.New("detection already reviewed")
	ErrInvalidTag      = errors.New("invalid tag")
	ErrNoSelection     = errors.New("no detections selected")
)

// Recorder receives review counters.
type Recorder interface {
	ReviewRecorded(action models.ActionType, n int)
}

// Watcher is told about detections reviewed here so change polls skip them.
type Watcher interface {
	Known(ds ...models.Detection)
}

type Reviewer struct {
	store       repository.Store
	broadcaster *stream.Broadcaster
	recorder    Recorder
	watcher     Watcher
	now         func() time.Time
}

type Option func(*Reviewer)

func WithWatcher(w Watcher) Option {
	return func(r *Reviewer) { r.watcher = w }
}

func NewReviewer(store repository.Store, broadcaster *stream.Broadcaster, recorder Recorder, opts ...Option) *Reviewer {
	r := &Reviewer{
		store:       store,
		broadcaster: broadcaster,
		recorder:    recorder,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BulkResult reports which selected detections changed.
type BulkResult struct {
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
}

func (r *Reviewer) Confirm(ctx context.Context, id, analyst, notes string) (*models.Detection, error) {
	return r.decide(ctx, id, models.ReviewConfirmed, analyst, notes)
}

func (r *Reviewer) Dismiss(ctx context.Context, id, analyst, notes string) (*models.Detection, error) {
	return r.decide(ctx, id, models.ReviewDismissed, analyst, notes)
}

func (r *Reviewer) decide(ctx context.Context, id string, status models.ReviewStatus, analyst, notes string) (*models.Detection, error) {
	d, err := r.store.GetDetection(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Reviewed() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyReviewed, d.VesselID, d.Review.Status)
	}

	res, err := r.apply(ctx, []string{id}, status, analyst, notes)
	if err != nil {
		return nil, err
	}
	if len(res.Updated) == 0 {
		// lost a race with another analyst
		return nil, fmt.Errorf("%w: %s", ErrAlreadyReviewed, d.VesselID)
	}
	return r.store.GetDetection(ctx, id)
}

func (r *Reviewer) BulkConfirm(ctx context.Context, ids []string, analyst, notes string) (BulkResult, error) {
	return r.apply(ctx, ids, models.ReviewConfirmed, analyst, notes)
}

func (r *Reviewer) BulkDismiss(ctx context.Context, ids []string, analyst, notes string) (BulkResult, error) {
	return r.apply(ctx, ids, models.ReviewDismissed, analyst, notes)
}

// apply reviews every pending detection among ids. Unknown and already
// reviewed IDs are skipped.
func (r *Reviewer) apply(ctx context.Context, ids []string, status models.ReviewStatus, analyst, notes string) (BulkResult, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return BulkResult{}, ErrNoSelection
	}

	pending := models.ReviewPending
	candidates, err := r.store.ListDetections(ctx, repository.Filter{IDs: ids, Review: &pending})
	if err != nil {
		return BulkResult{}, fmt.Errorf("error loading selection: %w", err)
	}

	result := BulkResult{Updated: []string{}, Skipped: []string{}}
	targets := make([]string, 0, len(candidates))
	for _, d := range candidates {
		targets = append(targets, d.ID)
	}
	for _, id := range ids {
		if !slices.Contains(targets, id) {
			result.Skipped = append(result.Skipped, id)
		}
	}
	if len(targets) == 0 {
		return result, nil
	}

	// Hosted timestamps keep microseconds; match that so the re-read compares equal.
	now := r.now().Truncate(time.Microsecond)
	if _, err := r.store.UpdateReview(ctx, targets, repository.ReviewUpdate{
		Status:     status,
		ReviewedAt: now,
		ReviewedBy: analyst,
		Notes:      notes,
	}); err != nil {
		return BulkResult{}, err
	}

	// Re-read to learn which rows this call changed; a concurrent review may
	// have claimed some of them first.
	updated, err := r.store.ListDetections(ctx, repository.Filter{IDs: targets})
	if err != nil {
		return BulkResult{}, fmt.Errorf("error reloading selection: %w", err)
	}

	action := actionFor(status)
	actions := make([]models.AnalystAction, 0, len(updated))
	for _, d := range updated {
		mine := d.Review.Status == status && d.Review.ReviewedBy == analyst &&
			d.Review.ReviewedAt != nil && d.Review.ReviewedAt.Equal(now)
		if !mine {
			result.Skipped = append(result.Skipped, d.ID)
			continue
		}
		result.Updated = append(result.Updated, d.ID)
		if r.watcher != nil {
			r.watcher.Known(d)
		}
		actions = append(actions, models.AnalystAction{
			DetectionID: d.ID,
			ActionType:  action,
			AnalystID:   analyst,
			Notes:       notes,
			CreatedAt:   now,
		})
		if r.broadcaster != nil {
			r.broadcaster.Broadcast(stream.Updated(d))
		}
	}

	if len(actions) > 0 {
		// audit failures do not undo the review
		if err := r.store.AddActions(ctx, actions); err != nil {
			slog.Error("error recording analyst actions", "action", action, "count", len(actions), "error", err)
		}
		if r.recorder != nil {
			r.recorder.ReviewRecorded(action, len(actions))
		}
	}

	slog.Info("detections reviewed", "status", status, "analyst", analyst,
		"updated", len(result.Updated), "skipped", len(result.Skipped))
	return result, nil
}

// BulkTag attaches tag to every known detection among ids.
func (r *Reviewer) BulkTag(ctx context.Context, ids []string, tag, analyst string) (BulkResult, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if !models.ValidTag(tag) {
		return BulkResult{}, fmt.Errorf("%w %q: must be one of %s", ErrInvalidTag, tag, strings.Join(models.Tags, ", "))
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return BulkResult{}, ErrNoSelection
	}

	found, err := r.store.ListDetections(ctx, repository.Filter{IDs: ids})
	if err != nil {
		return BulkResult{}, fmt.Errorf("error loading selection: %w", err)
	}

	result := BulkResult{Updated: []string{}, Skipped: []string{}}
	now := r.now()
	tags := make([]models.DetectionTag, 0, len(found))
	for _, id := range ids {
		if !slices.ContainsFunc(found, func(d models.Detection) bool { return d.ID == id }) {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.Updated = append(result.Updated, id)
		tags = append(tags, models.DetectionTag{DetectionID: id, Tag: tag, AddedBy: analyst, CreatedAt: now})
	}
	if len(tags) == 0 {
		return result, nil
	}

	if err := r.store.AddTags(ctx, tags); err != nil {
		return BulkResult{}, err
	}
	if r.recorder != nil {
		r.recorder.ReviewRecorded(models.ActionTag, len(tags))
	}
	slog.Info("detections tagged", "tag", tag, "analyst", analyst, "count", len(tags))
	return result, nil
}

// Trail is the audit history of one detection.
type Trail struct {
	Actions []models.AnalystAction `json:"actions"`
	Tags    []models.DetectionTag  `json:"tags"`
}

func (r *Reviewer) History(ctx context.Context, id string) (Trail, error) {
	if _, err := r.store.GetDetection(ctx, id); err != nil {
		return Trail{}, err
	}
	actions, err := r.store.ListActions(ctx, id)
	if err != nil {
		return Trail{}, fmt.Errorf("error listing actions: %w", err)
	}
	tags, err := r.store.ListTags(ctx, id)
	if err != nil {
		return Trail{}, fmt.Errorf("error listing tags: %w", err)
	}
	if actions == nil {
		actions = []models.AnalystAction{}
	}
	if tags == nil {
		tags = []models.DetectionTag{}
	}
	return Trail{Actions: actions, Tags: tags}, nil
}

func actionFor(status models.ReviewStatus) models.ActionType {
	if status == models.ReviewDismissed {
		return models.ActionDismissFalsePositive
	}
	return models.ActionConfirmAnomaly
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
