package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrReadOnly is returned by every write when no backend is configured.
	ErrReadOnly = errors.New("backend not configured")
)

type Filter struct {
	Limit        int
	Offset       int
	Since        *time.Time
	Until        *time.Time // exclusive
	UpdatedSince *time.Time
	Review       *models.ReviewStatus
	AIS          *models.AISStatus
	MinThreat    *int
	IDs          []string
	// OrderByUpdated lists oldest change first instead of newest detection first.
	OrderByUpdated bool
}

// ReviewUpdate is applied to every detection matched by UpdateReview.
type ReviewUpdate struct {
	Status     models.ReviewStatus
	ReviewedAt time.Time
	ReviewedBy string
	Notes      string
}

type DetectionRepository interface {
	AddDetection(ctx context.Context, d *models.Detection) error
	GetDetection(ctx context.Context, id string) (*models.Detection, error)
	DetectionExists(ctx context.Context, id string) (bool, error)
	ListDetections(ctx context.Context, opts Filter) ([]models.Detection, error)
	// UpdateReview changes only detections still pending and returns how
	// many rows changed.
	UpdateReview(ctx context.Context, ids []string, u ReviewUpdate) (int64, error)
	DeleteDetection(ctx context.Context, id string) error
}

type ActionRepository interface {
	AddActions(ctx context.Context, actions []models.AnalystAction) error
	ListActions(ctx context.Context, detectionID string) ([]models.AnalystAction, error)
}

type TagRepository interface {
	AddTags(ctx context.Context, tags []models.DetectionTag) error
	ListTags(ctx context.Context, detectionID string) ([]models.DetectionTag, error)
}

type RegistryRepository interface {
	AddVessel(ctx context.Context, v *models.Vessel) error
	ListVessels(ctx context.Context) ([]models.Vessel, error)
}

type MPARepository interface {
	AddMPA(ctx context.Context, m *models.MarineProtectedArea) error
	ListMPAs(ctx context.Context) ([]models.MarineProtectedArea, error)
}

type HistoryRepository interface {
	AddPosition(ctx context.Context, p *models.PositionFix) error
	ListPositions(ctx context.Context, vesselID string, since time.Time) ([]models.PositionFix, error)
}

type ReportRepository interface {
	AddReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context, limit int) ([]models.Report, error)
}

// Store bundles the tables of the surveillance backend.
type Store interface {
	DetectionRepository
	ActionRepository
	TagRepository
	RegistryRepository
	MPARepository
	HistoryRepository
	ReportRepository
	Close() error
}
