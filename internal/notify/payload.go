// Package notify turns push payloads into navigation signals, live activity
// updates and synchronizer refreshes.
package notify

import (
	"encoding/json"
	"fmt"
)

const (
	TypePipeline = "pipeline"
	TypeAlert    = "alert"
)

// Payload is the data part of a push notification.
// Status is kept as a raw string; an unknown value is ignored rather than
// rejecting the whole payload.
type Payload struct {
	Type       string   `json:"type"`
	ID         string   `json:"id,omitempty"`
	PipelineID string   `json:"pipelineId,omitempty"`
	AlertID    string   `json:"alertId,omitempty"`
	Status     string   `json:"status,omitempty"`
	Stage      string   `json:"stage,omitempty"`
	Progress   *float64 `json:"progress,omitempty"`
	Elapsed    string   `json:"elapsed,omitempty"`
}

// ParsePayload decodes a JSON push payload.
func ParsePayload(b []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("parsing push payload: %w", err)
	}
	return p, nil
}

// TargetID returns the identifier the payload refers to, preferring the
// type-specific field over the generic one.
func (p Payload) TargetID() string {
	switch p.Type {
	case TypePipeline:
		if p.PipelineID != "" {
			return p.PipelineID
		}
	case TypeAlert:
		if p.AlertID != "" {
			return p.AlertID
		}
	}
	return p.ID
}

func (p Payload) hasLiveFields() bool {
	return p.Status != "" || p.Stage != "" || p.Progress != nil || p.Elapsed != ""
}
