package domain

import (
	"encoding/json"
	"fmt"
)

// Role is the access level of a user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
)

// UnmarshalJSON rejects roles the client does not know about.
func (r *Role) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := Role(raw); v {
	case RoleAdmin, RoleDeveloper, RoleViewer:
		*r = v
		return nil
	default:
		return fmt.Errorf("unknown role %q", raw)
	}
}

// User is the authenticated account.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarURL,omitempty"`
	Role      Role   `json:"role"`
}

// Project groups pipelines and members.
type Project struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Emoji          string `json:"emoji"`
	PipelinesCount int    `json:"pipelinesCount"`
	MembersCount   int    `json:"membersCount"`
	LastActivity   string `json:"lastActivity"`
}

// Metrics is a point-in-time view of platform health.
type Metrics struct {
	CPUUsage          float64 `json:"cpuUsage"`
	MemoryUsage       float64 `json:"memoryUsage"`
	DiskUsage         float64 `json:"diskUsage"`
	NetworkIn         float64 `json:"networkIn"`
	NetworkOut        float64 `json:"networkOut"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	ErrorRate         float64 `json:"errorRate"`
}
