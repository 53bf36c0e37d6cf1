package tui_test

import (
	"strings"
	"testing"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/tui"
)

func TestStatusPresentation(t *testing.T) {
	tests := []struct {
		status domain.Status
		icon   string
		label  string
	}{
		{domain.StatusPending, "↷", "Pending"},
		{domain.StatusRunning, "●", "Running"},
		{domain.StatusSuccess, "✓", "Success"},
		{domain.StatusFailed, "✗", "Failed"},
		{domain.StatusCancelled, "○", "Cancelled"},
		{domain.Status("weird"), "?", "Weird"},
	}
	for _, tt := range tests {
		if got := tui.StatusIcon(tt.status); got != tt.icon {
			t.Errorf("StatusIcon(%s): expected '%s', got '%s'", tt.status, tt.icon, got)
		}
		if got := tui.StatusLabel(tt.status); got != tt.label {
			t.Errorf("StatusLabel(%s): expected '%s', got '%s'", tt.status, tt.label, got)
		}
		if got := tui.RenderStatus(tt.status); !strings.Contains(got, tt.label) {
			t.Errorf("RenderStatus(%s): expected label in '%s'", tt.status, got)
		}
	}
}

func TestRenderSeverity(t *testing.T) {
	if got := tui.RenderSeverity(domain.SeverityCritical); !strings.Contains(got, "Critical") {
		t.Errorf("expected 'Critical' in '%s'", got)
	}
	if got := tui.RenderSeverity(domain.Severity("x")); !strings.Contains(got, "?") {
		t.Errorf("expected unknown icon in '%s'", got)
	}
}
