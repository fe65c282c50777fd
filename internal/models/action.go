package models

import "time"

type ActionType string

const (
	ActionConfirmAnomaly       ActionType = "confirm_anomaly"
	ActionDismissFalsePositive ActionType = "dismiss_false_positive"
	ActionTag                  ActionType = "tag"
)

// AnalystAction is an audit record of an analyst decision.
type AnalystAction struct {
	ID          string     `json:"id"`
	DetectionID string     `json:"vessel_detection_id"`
	ActionType  ActionType `json:"action_type"`
	AnalystID   string     `json:"analyst_id"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type DetectionTag struct {
	ID          string    `json:"id"`
	DetectionID string    `json:"vessel_detection_id"`
	Tag         string    `json:"tag"`
	AddedBy     string    `json:"added_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tags lists the labels analysts may attach in bulk.
var Tags = []string{"fishing", "cargo", "suspicious", "verified", "priority", "follow_up_required"}

func ValidTag(tag string) bool {
	for _, t := range Tags {
		if t == tag {
			return true
		}
	}
	return false
}
