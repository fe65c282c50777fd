// Package intake turns analyst-entered detections into stored records.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mr1hm/sentinel-sea/internal/geo"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/simulation"
	"github.com/mr1hm/sentinel-sea/internal/stream"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

const (
	DefaultVesselSize   = "Medium (30-40m)"
	DefaultMaritimeZone = "Bay of Bengal"
)

// Input is a manual detection as entered by an analyst. Pointer fields are
// optional unless tagged required.
type Input struct {
	VesselID      string   `json:"vessel_id" validate:"omitempty,max=64"`
	Latitude      *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	AISStatus     string   `json:"ais_status" validate:"omitempty,oneof=ON OFF on off"`
	VesselSize    string   `json:"vessel_size" validate:"omitempty,max=64"`
	ThreatScore   *int     `json:"threat_score" validate:"omitempty,gte=0,lte=100"`
	InsideMPA     *bool    `json:"inside_mpa"`
	MPAName       string   `json:"mpa_name" validate:"omitempty,max=128"`
	MaritimeZone  string   `json:"maritime_zone" validate:"omitempty,max=128"`
	SARArea       *float64 `json:"sar_area" validate:"omitempty,gt=0"`
	SARIntensity  *float64 `json:"sar_intensity" validate:"omitempty,gte=0"`
	SARElongation *float64 `json:"sar_elongation" validate:"omitempty,gt=0"`
}

// ValidationError is a single user-facing input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var messages = map[string]string{
	"Latitude":      "latitude must be between -90 and 90",
	"Longitude":     "longitude must be between -180 and 180",
	"ThreatScore":   "threat score must be between 0 and 100",
	"AISStatus":     "ais status must be ON or OFF",
	"SARArea":       "sar area must be positive",
	"SARIntensity":  "sar intensity must not be negative",
	"SARElongation": "sar elongation must be positive",
}

// Watcher is told about detections stored here so change polls skip them.
type Watcher interface {
	Known(ds ...models.Detection)
}

// Alerter is told about every manual detection.
type Alerter interface {
	Alert(ctx context.Context, d models.Detection) error
}

type Intake struct {
	store       repository.Store
	index       *geo.Index
	broadcaster *stream.Broadcaster
	watcher     Watcher
	alerter     Alerter
	validate    *validator.Validate
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Intake)

func WithWatcher(w Watcher) Option {
	return func(in *Intake) { in.watcher = w }
}

func WithAlerter(a Alerter) Option {
	return func(in *Intake) { in.alerter = a }
}

func New(store repository.Store, index *geo.Index, broadcaster *stream.Broadcaster, opts ...Option) *Intake {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	in := &Intake{
		store:       store,
		index:       index,
		broadcaster: broadcaster,
		validate:    v,
		now:         func() time.Time { return time.Now().UTC() },
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5e4)),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Validate checks in and returns the first problem as a *ValidationError.
func (in *Intake) Validate(input Input) error {
	if input.Latitude == nil || input.Longitude == nil {
		return &ValidationError{Field: "latitude", Message: "latitude and longitude are required"}
	}

	err := in.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	msg, ok := messages[fe.StructField()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// Build validates input and fills in every derived field.
func (in *Intake) Build(input Input) (*models.Detection, error) {
	if err := in.Validate(input); err != nil {
		return nil, err
	}

	now := in.now()
	d := &models.Detection{
		ID:           uuid.NewString(),
		VesselID:     strings.TrimSpace(input.VesselID),
		Timestamp:    now,
		Latitude:     *input.Latitude,
		Longitude:    *input.Longitude,
		AISStatus:    models.AISOff,
		VesselSize:   strings.TrimSpace(input.VesselSize),
		MaritimeZone: strings.TrimSpace(input.MaritimeZone),
		Source:       models.SourceManual,
		Review:       models.Review{Status: models.ReviewPending},
		UpdatedAt:    now,
	}
	if d.VesselID == "" {
		d.VesselID = in.vesselID(now)
	}
	if ais, ok := models.ParseAISStatus(input.AISStatus); ok {
		d.AISStatus = ais
	}
	if d.MaritimeZone == "" {
		d.MaritimeZone = DefaultMaritimeZone
	}

	if input.SARArea != nil {
		d.SAR = &models.SARFeatures{Area: *input.SARArea}
		if input.SARIntensity != nil {
			d.SAR.Intensity = *input.SARIntensity
		}
		if input.SARElongation != nil {
			d.SAR.Elongation = *input.SARElongation
		}
	}

	switch {
	case d.VesselSize != "":
	case d.SAR != nil && d.SAR.Intensity > 0:
		c := threat.ClassifySAR(d.SAR.Area, d.SAR.Intensity)
		d.VesselSize = c.SizeLabel
		d.EstimatedLength = c.EstimatedLength
	default:
		d.VesselSize = DefaultVesselSize
	}
	d.SizeClass = models.ParseSizeClass(d.VesselSize)

	if input.InsideMPA != nil {
		d.InsideMPA = *input.InsideMPA
		if d.InsideMPA {
			d.MPAName = strings.TrimSpace(input.MPAName)
		}
	} else if mpa, ok := in.index.Locate(d.Latitude, d.Longitude); ok {
		d.InsideMPA = true
		d.MPAName = mpa.Name
	}

	if input.ThreatScore != nil {
		d.ThreatScore = *input.ThreatScore
	} else {
		d.ThreatScore = threat.Score(d)
	}
	return d, nil
}

// Submit builds, stores and announces a manual detection.
func (in *Intake) Submit(ctx context.Context, input Input) (*models.Detection, error) {
	d, err := in.Build(input)
	if err != nil {
		return nil, err
	}

	if err := in.store.AddDetection(ctx, d); err != nil {
		return nil, err
	}
	if in.watcher != nil {
		in.watcher.Known(*d)
	}
	if err := in.store.AddPosition(ctx, &models.PositionFix{
		VesselID:  d.VesselID,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
		Timestamp: d.Timestamp,
	}); err != nil {
		slog.Warn("error recording position", "vessel_id", d.VesselID, "error", err)
	}

	if in.broadcaster != nil {
		in.broadcaster.Broadcast(stream.Inserted(*d))
	}
	if in.alerter != nil {
		if err := in.alerter.Alert(ctx, *d); err != nil {
			slog.Warn("error sending alert", "vessel_id", d.VesselID, "error", err)
		}
	}
	slog.Info("manual detection added", "vessel_id", d.VesselID, "threat", d.ThreatScore, "inside_mpa", d.InsideMPA)
	return d, nil
}

func (in *Intake) vesselID(now time.Time) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return simulation.VesselID(now, 'M', in.rng.IntN(1000))
}
