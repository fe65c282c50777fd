package ingestion

import "time"

type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
	StateError  State = "error"
)

type Status struct {
	Source    string        `json:"source"`
	State     State         `json:"state"`
	Interval  time.Duration `json:"interval"`
	LastPoll  time.Time     `json:"last_poll"`
	LastError string        `json:"last_error,omitempty"`
	Count     int64         `json:"count"`
}
