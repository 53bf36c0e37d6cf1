package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity classifies an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// UnmarshalJSON rejects severities the client does not know about.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := Severity(raw); v {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown severity %q", raw)
	}
}

// AlertItem is a monitoring alert raised by the backend.
type AlertItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Severity     Severity  `json:"severity"`
	Source       string    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// RemoveAlert returns alerts without the entry matching id.
// Deletion is local to the client; the backend is not told.
func RemoveAlert(alerts []AlertItem, id string) []AlertItem {
	out := make([]AlertItem, 0, len(alerts))
	for _, a := range alerts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
