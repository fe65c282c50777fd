package repository

import (
	"context"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

type readOnly struct {
	Store
}

// ReadOnly wraps s so reads pass through and every write fails with
// ErrReadOnly. Close still closes s.
func ReadOnly(s Store) Store {
	return readOnly{Store: s}
}

func (readOnly) AddDetection(context.Context, *models.Detection) error { return ErrReadOnly }

func (readOnly) UpdateReview(context.Context, []string, ReviewUpdate) (int64, error) {
	return 0, ErrReadOnly
}

func (readOnly) DeleteDetection(context.Context, string) error { return ErrReadOnly }

func (readOnly) AddActions(context.Context, []models.AnalystAction) error { return ErrReadOnly }

func (readOnly) AddTags(context.Context, []models.DetectionTag) error { return ErrReadOnly }

func (readOnly) AddVessel(context.Context, *models.Vessel) error { return ErrReadOnly }

func (readOnly) AddMPA(context.Context, *models.MarineProtectedArea) error { return ErrReadOnly }

func (readOnly) AddPosition(context.Context, *models.PositionFix) error { return ErrReadOnly }

func (readOnly) AddReport(context.Context, *models.Report) error { return ErrReadOnly }

// IsReadOnly reports whether s rejects writes.
func IsReadOnly(s Store) bool {
	_, ok := s.(readOnly)
	return ok
}
