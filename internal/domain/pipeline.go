package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status represents the execution state of a pipeline, stage, or job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are expected for a run in this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects statuses the client does not know about.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v := Status(raw)
	if !v.Valid() {
		return fmt.Errorf("unknown status %q", raw)
	}
	*s = v
	return nil
}

// Job is the leaf unit of work within a stage.
type Job struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Duration string `json:"duration"`
}

// Stage groups jobs. Its status is reported by the server, never derived from Jobs.
type Stage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Duration string `json:"duration"`
	Jobs     []Job  `json:"jobs"`
}

// Pipeline represents a single CI pipeline run.
// UpdatedAt is server-reported and orders snapshots of the same run when present.
type Pipeline struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Branch      string    `json:"branch"`
	Duration    string    `json:"duration"`
	Commit      string    `json:"commit,omitempty"`
	TriggeredBy string    `json:"triggeredBy,omitempty"`
	Stages      []Stage   `json:"stages,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}
