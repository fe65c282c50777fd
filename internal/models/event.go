package models

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent describes one mutation of the detections table. Detection is
// nil for deletes, which carry OldID instead.
type ChangeEvent struct {
	Type      ChangeType `json:"type"`
	Detection *Detection `json:"detection,omitempty"`
	OldID     string     `json:"old_id,omitempty"`
}
