// Package notify builds analyst notifications and publishes threat alerts.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultDuration is how long a client should show a notification.
const DefaultDuration = 5 * time.Second

// Notification is a transient message returned alongside write responses.
type Notification struct {
	ID         string    `json:"id"`
	Level      Level     `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	DurationMs int64     `json:"duration"`
	Timestamp  time.Time `json:"timestamp"`
}

func New(level Level, title, message string) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Level:      level,
		Title:      title,
		Message:    message,
		DurationMs: DefaultDuration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
}

func Confirmed(d *models.Detection) Notification {
	return New(LevelSuccess, "Anomaly Confirmed", d.VesselID+" has been flagged for investigation")
}

func Dismissed(d *models.Detection) Notification {
	return New(LevelInfo, "Detection Dismissed", d.VesselID+" marked as false positive")
}

func Bulk(action string, updated, skipped int) Notification {
	msg := fmt.Sprintf("%d detections %s", updated, action)
	if skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", skipped)
	}
	level := LevelSuccess
	if updated == 0 {
		level = LevelWarning
	}
	return New(level, "Bulk Update", msg)
}

func Added(d *models.Detection) Notification {
	return New(LevelSuccess, "Detection Added", fmt.Sprintf("%s recorded with threat score: %d%%", d.VesselID, d.ThreatScore))
}

func HighThreat(d *models.Detection) Notification {
	return New(LevelWarning, "High Threat Detection", fmt.Sprintf("%s detected with threat score: %d%%", d.VesselID, d.ThreatScore))
}

func Stream(live bool) Notification {
	if live {
		return New(LevelInfo, "Stream Active", "Real-time data stream resumed")
	}
	return New(LevelInfo, "Stream Paused", "Data stream paused")
}

func Report(filename string) Notification {
	return New(LevelSuccess, "Report Generated", filename)
}

func Failed(err error) Notification {
	return New(LevelError, "Update Failed", err.Error())
}
