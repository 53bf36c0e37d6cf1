package tui

import (
	"fmt"
	"strings"

	"github.com/prts-dev/pipesync/internal/domain"
)

// tallyOrder lists job statuses from most to least actionable.
var tallyOrder = []domain.Status{
	domain.StatusFailed,
	domain.StatusRunning,
	domain.StatusPending,
	domain.StatusCancelled,
	domain.StatusSuccess,
}

var tallyWords = map[domain.Status]string{
	domain.StatusFailed:    "failed",
	domain.StatusRunning:   "running",
	domain.StatusPending:   "pending",
	domain.StatusCancelled: "cancelled",
	domain.StatusSuccess:   "passed",
}

// JobListModel shows the jobs of one stage of the watched run.
// The stage status is shown as the server reports it; the job tally beside
// it is informational and never used to derive that status.
type JobListModel struct {
	stage  domain.Stage
	cursor int
}

// NewJobListModel creates a job list for stage.
func NewJobListModel(stage domain.Stage) JobListModel {
	return JobListModel{stage: stage}
}

// Refresh swaps in a newer snapshot of the stage. The cursor stays on the
// same job ID when that job is still reported.
func (m JobListModel) Refresh(stage domain.Stage) JobListModel {
	selected := m.SelectedJob().ID
	same := stage.ID == m.stage.ID
	m.stage = stage
	m.cursor = 0
	if same && selected != "" {
		for i, j := range stage.Jobs {
			if j.ID == selected {
				m.cursor = i
				break
			}
		}
	}
	return m
}

func (m JobListModel) MoveDown() JobListModel {
	if m.cursor < len(m.stage.Jobs)-1 {
		m.cursor++
	}
	return m
}

func (m JobListModel) MoveUp() JobListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m JobListModel) Cursor() int {
	return m.cursor
}

// SelectedJob returns the highlighted job, or a zero Job when the stage has none.
func (m JobListModel) SelectedJob() domain.Job {
	if len(m.stage.Jobs) == 0 {
		return domain.Job{}
	}
	return m.stage.Jobs[m.cursor]
}

// Tally summarizes job statuses, e.g. "1 failed, 2 passed".
func (m JobListModel) Tally() string {
	counts := make(map[domain.Status]int)
	for _, j := range m.stage.Jobs {
		counts[j.Status]++
	}
	var parts []string
	for _, s := range tallyOrder {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, tallyWords[s]))
			delete(counts, s)
		}
	}
	unknown := 0
	for _, n := range counts {
		unknown += n
	}
	if unknown > 0 {
		parts = append(parts, fmt.Sprintf("%d unknown", unknown))
	}
	return strings.Join(parts, ", ")
}

// View renders the stage heading followed by one row per job.
func (m JobListModel) View() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(" Stage %s  %s  %s\n",
		m.stage.Name,
		RenderStatus(m.stage.Status),
		faintStyle.Render(durationOrDash(m.stage.Duration)),
	))
	if len(m.stage.Jobs) == 0 {
		sb.WriteString("  No jobs reported for this stage yet.\n")
		return sb.String()
	}
	sb.WriteString(faintStyle.Render(fmt.Sprintf("  %d jobs: %s", len(m.stage.Jobs), m.Tally())))
	sb.WriteString("\n")
	for i, j := range m.stage.Jobs {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %-24s %-10s %s\n",
			prefix,
			StatusIcon(j.Status),
			truncate(j.Name, 24),
			StatusLabel(j.Status),
			durationOrDash(j.Duration),
		))
	}
	return sb.String()
}
