package liveactivity

import (
	"fmt"
	"time"

	"github.com/prts-dev/pipesync/internal/domain"
)

// TerminalLabel is the stage text shown once an activity has ended.
func TerminalLabel(s domain.Status) string {
	switch s {
	case domain.StatusSuccess:
		return "Completed"
	case domain.StatusFailed:
		return "Failed"
	case domain.StatusCancelled:
		return "Cancelled"
	default:
		return "Ended"
	}
}

// Project maps a pipeline snapshot onto activity content.
// elapsed is used only when the pipeline carries no duration of its own.
func Project(p domain.Pipeline, elapsed time.Duration) Content {
	c := Content{
		Status:       p.Status,
		CurrentStage: CurrentStage(p),
		Progress:     Progress(p),
		ElapsedTime:  p.Duration,
	}
	if c.ElapsedTime == "" {
		c.ElapsedTime = FormatElapsed(elapsed)
	}
	return c
}

// Progress is the share of stages in a terminal status, or 1 for a terminal pipeline.
func Progress(p domain.Pipeline) float64 {
	if p.Status.IsTerminal() {
		return 1
	}
	if len(p.Stages) == 0 {
		return 0
	}
	done := 0
	for _, s := range p.Stages {
		if s.Status.IsTerminal() {
			done++
		}
	}
	return float64(done) / float64(len(p.Stages))
}

// CurrentStage is the first running stage, else the first pending one, else the last.
func CurrentStage(p domain.Pipeline) string {
	for _, s := range p.Stages {
		if s.Status == domain.StatusRunning {
			return s.Name
		}
	}
	for _, s := range p.Stages {
		if s.Status == domain.StatusPending {
			return s.Name
		}
	}
	if n := len(p.Stages); n > 0 {
		return p.Stages[n-1].Name
	}
	return defaultFirstStage
}

// FormatElapsed renders d as "42s", "3m 05s" or "1h 02m".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
