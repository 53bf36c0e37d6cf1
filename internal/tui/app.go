package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/provider"
)

// SnapshotMsg is sent when a refresh of the watched pipeline completes.
// It is exported so that tests can inject it directly into WatchModel.Update.
// Messages for an ID other than the watched one are ignored; an empty ID
// means the watched pipeline.
type SnapshotMsg struct {
	ID       string
	Pipeline domain.Pipeline
	Err      error
}

// NavigateMsg is sent when a push payload asks for a screen.
type NavigateMsg struct {
	Kind string // "pipeline" or "alert"
	ID   string
}

// tickMsg is sent by the auto-refresh ticker.
type tickMsg struct{}

// dismissMsg removes an ended activity card once its linger period is over.
type dismissMsg struct {
	id string
}

// actionResultMsg is sent when a pipeline action (retry, cancel) completes.
type actionResultMsg struct {
	action   string
	pipeline domain.Pipeline
	err      error
}

// viewState indicates the current navigation level.
type viewState int

const (
	viewStages viewState = iota
	viewJobs
)

const (
	defaultInterval       = 30 * time.Second
	defaultActiveInterval = 5 * time.Second
	separator             = "────────────────────────────────────────────────────────────\n"
)

// WatchModel is the root Bubbletea model for `pipesync watch`.
type WatchModel struct {
	pipelineID  string
	pipeline    domain.Pipeline
	hasPipeline bool
	// Navigation
	view   viewState
	stages StageListModel
	jobs   JobListModel
	// Live activity
	card *ActivityCard
	// General state
	err           error
	notice        string
	confirmAction string
	width         int
	// Polling intervals; zero uses the defaults.
	Interval       time.Duration
	ActiveInterval time.Duration
	// Callbacks (set by caller via exported fields).
	// A retry that returns a pipeline with a new ID switches the view to it.
	OnRefresh func(ctx context.Context, id string) (domain.Pipeline, error)
	OnRetry   func(ctx context.Context, id string) (domain.Pipeline, error)
	OnCancel  func(ctx context.Context, id string) (domain.Pipeline, error)
}

// NewWatchModel creates the watch model for pipeline id.
func NewWatchModel(id string) WatchModel {
	return WatchModel{
		pipelineID: id,
		stages:     NewStageListModel(nil),
		jobs:       NewJobListModel(domain.Stage{}),
	}
}

// Init triggers the initial refresh and starts the ticker.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tickEvery(m.nextInterval()))
}

func (m WatchModel) refresh() tea.Cmd {
	if m.OnRefresh == nil {
		return nil
	}
	id := m.pipelineID
	return func() tea.Msg {
		p, err := m.OnRefresh(context.Background(), id)
		return SnapshotMsg{ID: id, Pipeline: p, Err: err}
	}
}

func (m WatchModel) runAction(action string) tea.Cmd {
	fn := m.OnRetry
	if action == "cancel" {
		fn = m.OnCancel
	}
	if fn == nil {
		return nil
	}
	id := m.pipelineID
	return func() tea.Msg {
		p, err := fn(context.Background(), id)
		return actionResultMsg{action: action, pipeline: p, err: err}
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

// nextInterval is short until the watched pipeline reaches a terminal status.
func (m WatchModel) nextInterval() time.Duration {
	if !m.hasPipeline || !m.pipeline.Status.IsTerminal() {
		if m.ActiveInterval > 0 {
			return m.ActiveInterval
		}
		return defaultActiveInterval
	}
	if m.Interval > 0 {
		return m.Interval
	}
	return defaultInterval
}

// Update handles all incoming messages and key events.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case SnapshotMsg:
		if msg.ID != "" && msg.ID != m.pipelineID {
			return m, nil
		}
		if msg.Err != nil {
			var authErr *provider.AuthExpiredError
			if errors.As(msg.Err, &authErr) {
				m.err = fmt.Errorf("%s session expired: run 'pipesync login' and restart", authErr.Realm)
				return m, nil
			}
			// Errors are non-blocking: keep showing the last good snapshot.
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m = m.applySnapshot(msg.Pipeline)

	case tickMsg:
		return m, tea.Batch(m.refresh(), tickEvery(m.nextInterval()))

	case actionResultMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("%s failed: %w", msg.action, msg.err)
			return m, nil
		}
		if msg.action == "retry" && msg.pipeline.ID != "" && msg.pipeline.ID != m.pipelineID {
			m.notice = fmt.Sprintf("retry started as #%s (was #%s)", msg.pipeline.ID, m.pipelineID)
			m.pipelineID = msg.pipeline.ID
			m.view = viewStages
			m.stages = NewStageListModel(nil)
			m = m.applySnapshot(msg.pipeline)
			return m, m.refresh()
		}
		m.notice = fmt.Sprintf("%s requested for #%s", msg.action, m.pipelineID)
		return m, m.refresh()

	case NavigateMsg:
		switch msg.Kind {
		case "alert":
			m.notice = fmt.Sprintf("Alert %s received: run 'pipesync alerts list'", msg.ID)
		default:
			if msg.ID == m.pipelineID {
				m.notice = fmt.Sprintf("Push update for #%s", msg.ID)
			} else {
				m.notice = fmt.Sprintf("Pipeline #%s has news: run 'pipesync pipelines get %s'", msg.ID, msg.ID)
			}
		}

	case ActivityMsg:
		return m.updateActivity(msg)

	case dismissMsg:
		if m.card != nil && m.card.ID == msg.id {
			m.card = nil
		}

	case tea.KeyMsg:
		if m.confirmAction != "" {
			switch msg.String() {
			case "y":
				action := m.confirmAction
				m.confirmAction = ""
				return m, m.runAction(action)
			case "q", "ctrl+c":
				return m, tea.Quit
			default:
				m.confirmAction = ""
				return m, nil
			}
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "ctrl+r":
			return m, m.refresh()
		}
		switch m.view {
		case viewStages:
			return m.updateStages(msg)
		case viewJobs:
			return m.updateJobs(msg)
		}
	}
	return m, nil
}

func (m WatchModel) applySnapshot(p domain.Pipeline) WatchModel {
	m.pipeline = p
	m.hasPipeline = true
	m.stages = m.stages.UpdateStages(p.Stages)
	if m.view == viewJobs {
		m.jobs = m.jobs.Refresh(m.stages.SelectedStage())
	}
	return m
}

func (m WatchModel) updateActivity(msg ActivityMsg) (tea.Model, tea.Cmd) {
	switch msg.Event {
	case ActivityStarted:
		m.card = &ActivityCard{ID: msg.ID, Attributes: msg.Attributes, Content: msg.Content}
	case ActivityUpdated:
		if m.card != nil && m.card.ID == msg.ID {
			card := *m.card
			card.Content = msg.Content
			m.card = &card
		}
	case ActivityEnded:
		if m.card == nil || m.card.ID != msg.ID {
			return m, nil
		}
		if msg.Linger <= 0 {
			m.card = nil
			return m, nil
		}
		card := *m.card
		card.Content = msg.Content
		card.Ended = true
		m.card = &card
		id := msg.ID
		return m, tea.Tick(msg.Linger, func(_ time.Time) tea.Msg {
			return dismissMsg{id: id}
		})
	}
	return m, nil
}

func (m WatchModel) updateStages(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.stages = m.stages.MoveDown()
	case "up":
		m.stages = m.stages.MoveUp()
	case "enter":
		if len(m.stages.Stages()) > 0 {
			m.jobs = NewJobListModel(m.stages.SelectedStage())
			m.view = viewJobs
		}
	case "r":
		m.confirmAction = "retry"
	case "x":
		m.confirmAction = "cancel"
	}
	return m, nil
}

func (m WatchModel) updateJobs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.jobs = m.jobs.MoveDown()
	case "up":
		m.jobs = m.jobs.MoveUp()
	case "esc":
		m.view = viewStages
	}
	return m, nil
}

// View renders the full TUI.
func (m WatchModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.header())
	sb.WriteString(separator)

	if m.card != nil {
		sb.WriteString(m.card.View(m.barWidth()))
		sb.WriteString("\n")
	}

	switch {
	case !m.hasPipeline && m.err == nil:
		sb.WriteString("Loading pipeline...\n")
	case m.view == viewJobs:
		sb.WriteString(m.jobs.View())
	case m.hasPipeline:
		sb.WriteString(" Stages\n")
		sb.WriteString(m.stages.View())
	}

	if m.err != nil {
		sb.WriteString("\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}
	if m.notice != "" {
		sb.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	sb.WriteString(separator)
	sb.WriteString(m.footer())
	return sb.String()
}

func (m WatchModel) header() string {
	if !m.hasPipeline {
		return headerStyle.Render(fmt.Sprintf("pipesync | #%s", m.pipelineID)) + "\n"
	}
	p := m.pipeline
	line := fmt.Sprintf("pipesync | %s #%s ⎇ %s  %s", p.Name, p.ID, p.Branch, RenderStatus(p.Status))
	if p.TriggeredBy != "" {
		line += faintStyle.Render("  by " + p.TriggeredBy)
	}
	return headerStyle.Render(line) + "\n"
}

func (m WatchModel) footer() string {
	switch m.confirmAction {
	case "retry":
		return fmt.Sprintf(" Retry pipeline #%s on %s? [y/N] \n", m.pipelineID, m.pipeline.Branch)
	case "cancel":
		return fmt.Sprintf(" Cancel pipeline #%s on %s? [y/N] \n", m.pipelineID, m.pipeline.Branch)
	}
	if m.view == viewJobs {
		return " ↑/↓: navigate   esc: back   ctrl+r: refresh   q: quit\n"
	}
	return " ↑/↓: navigate   enter: jobs   ctrl+r: refresh   r: retry   x: cancel   q: quit\n"
}

func (m WatchModel) barWidth() int {
	if m.width <= 0 {
		return defaultCardWidth
	}
	return min(max(m.width-8, 10), 80)
}

// NewProgram wraps m in a full-screen program. opts are applied after the
// alternate screen option.
func NewProgram(m WatchModel, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
}
