package tui

import (
	"fmt"
	"strings"

	"github.com/prts-dev/pipesync/internal/domain"
)

// StageListModel is an immutable Bubbletea-compatible model for the stage list panel.
type StageListModel struct {
	stages []domain.Stage
	cursor int
}

// NewStageListModel creates a stage list model with the given stages.
func NewStageListModel(stages []domain.Stage) StageListModel {
	return StageListModel{stages: stages, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m StageListModel) MoveDown() StageListModel {
	if m.cursor < len(m.stages)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m StageListModel) MoveUp() StageListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m StageListModel) SelectedIndex() int {
	return m.cursor
}

// SelectedStage returns the currently highlighted stage.
// Returns zero-value Stage if the list is empty.
func (m StageListModel) SelectedStage() domain.Stage {
	if len(m.stages) == 0 {
		return domain.Stage{}
	}
	return m.stages[m.cursor]
}

// Stages returns the stages shown by the model.
func (m StageListModel) Stages() []domain.Stage {
	return m.stages
}

// UpdateStages replaces the stages, keeping the cursor on the same stage ID
// when it still exists.
func (m StageListModel) UpdateStages(stages []domain.Stage) StageListModel {
	selected := m.SelectedStage().ID
	m.stages = stages
	m.cursor = 0
	for i, s := range stages {
		if s.ID == selected {
			m.cursor = i
			break
		}
	}
	return m
}

// View renders the stage list as a string.
func (m StageListModel) View() string {
	if len(m.stages) == 0 {
		return "No stages reported yet."
	}
	var sb strings.Builder
	for i, s := range m.stages {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %-20s %-10s %s\n",
			prefix,
			StatusIcon(s.Status),
			truncate(s.Name, 20),
			StatusLabel(s.Status),
			durationOrDash(s.Duration),
		))
	}
	return sb.String()
}

func durationOrDash(d string) string {
	if d == "" {
		return "--"
	}
	return d
}
