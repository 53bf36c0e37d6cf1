// Package liveactivity owns the single long-lived status surface that mirrors a
// tracked pipeline, and the projection of pipeline snapshots onto it.
package liveactivity

import (
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/prts-dev/pipesync/internal/domain"
)

// DefaultLinger is how long a finished activity stays visible.
const DefaultLinger = 5 * time.Minute

const defaultFirstStage = "Build"

// Phase is the lifecycle position of the controller.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseActive
	PhaseRetiring
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseRetiring:
		return "retiring"
	default:
		return "inactive"
	}
}

// Attributes are fixed for the lifetime of an activity.
type Attributes struct {
	PipelineName string
	Branch       string
}

// Content is the mutable part of an activity.
type Content struct {
	Status       domain.Status
	CurrentStage string
	Progress     float64
	ElapsedTime  string
}

// State is a copy of the controller's state.
type State struct {
	Phase      Phase
	ID         string
	Attributes Attributes
	Content    Content
	StartedAt  time.Time
	EndedAt    time.Time
}

// Timer is the subset of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLinger sets how long an ended activity stays visible.
func WithLinger(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.linger = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithAfterFunc replaces time.AfterFunc for the linger timer.
func WithAfterFunc(fn func(time.Duration, func()) Timer) Option {
	return func(c *Controller) { c.afterFunc = fn }
}

// Controller drives at most one live activity through
// inactive -> active -> retiring -> inactive.
// Operations never return errors; host failures are logged.
type Controller struct {
	host      Host
	logger    *log.Logger
	linger    time.Duration
	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	mu    sync.Mutex
	state State
	timer Timer
}

// NewController creates a Controller rendering on host.
func NewController(host Host, logger *log.Logger, opts ...Option) *Controller {
	c := &Controller{
		host:   host,
		logger: logger.WithPrefix("liveactivity"),
		linger: DefaultLinger,
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a new activity showing firstStage, or "Build" when empty.
// An activity that is still active is ended first with its current content;
// one that is lingering is dismissed.
func (c *Controller) Start(attrs Attributes, firstStage string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.host.Enabled() {
		c.logger.Debug("host disabled, not starting activity", "pipeline", attrs.PipelineName)
		return
	}

	switch c.state.Phase {
	case PhaseActive:
		c.logger.Info("replacing active activity", "id", c.state.ID)
		c.dismissLocked(c.state.Content)
	case PhaseRetiring:
		c.dismissLocked(c.state.Content)
	}

	if firstStage == "" {
		firstStage = defaultFirstStage
	}
	id := uuid.NewString()
	content := Content{
		Status:       domain.StatusRunning,
		CurrentStage: firstStage,
		Progress:     0,
		ElapsedTime:  "0s",
	}
	if err := c.host.Request(id, attrs, content); err != nil {
		c.logger.Error("starting activity failed", "pipeline", attrs.PipelineName, "err", err)
		c.state = State{}
		return
	}
	c.state = State{
		Phase:      PhaseActive,
		ID:         id,
		Attributes: attrs,
		Content:    content,
		StartedAt:  c.now(),
	}
	c.logger.Debug("activity started", "id", id, "pipeline", attrs.PipelineName)
}

// Update replaces the activity content. Progress is clamped to [0,1].
// It is a no-op unless an activity is active.
func (c *Controller) Update(status domain.Status, stage string, progress float64, elapsed string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseActive {
		return
	}
	content := Content{
		Status:       status,
		CurrentStage: stage,
		Progress:     clamp(progress),
		ElapsedTime:  elapsed,
	}
	c.state.Content = content
	if err := c.host.Update(c.state.ID, content); err != nil {
		c.logger.Warn("updating activity failed", "id", c.state.ID, "err", err)
	}
}

// End shows final as a completed activity and dismisses it after the linger
// period. While lingering, a different final status replaces the shown one
// and the linger timer keeps running. Otherwise it is a no-op unless an
// activity is active.
func (c *Controller) End(final domain.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.Phase {
	case PhaseActive:
	case PhaseRetiring:
		c.correctLocked(final)
		return
	default:
		return
	}
	content := Content{
		Status:       final,
		CurrentStage: TerminalLabel(final),
		Progress:     1,
		ElapsedTime:  c.state.Content.ElapsedTime,
	}
	c.state.Content = content
	c.state.Phase = PhaseRetiring
	c.state.EndedAt = c.now()
	if err := c.host.End(c.state.ID, content, c.linger); err != nil {
		c.logger.Warn("ending activity failed", "id", c.state.ID, "err", err)
	}
	id := c.state.ID
	c.timer = c.afterFunc(c.linger, func() { c.retire(id) })
}

// correctLocked shows a different final status on a lingering activity.
// Caller holds mu.
func (c *Controller) correctLocked(final domain.Status) {
	if final == c.state.Content.Status {
		return
	}
	c.logger.Warn("final status changed after end", "id", c.state.ID, "from", c.state.Content.Status, "to", final)
	c.state.Content.Status = final
	c.state.Content.CurrentStage = TerminalLabel(final)
	if err := c.host.Update(c.state.ID, c.state.Content); err != nil {
		c.logger.Warn("updating activity failed", "id", c.state.ID, "err", err)
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed returns the running time of the current activity. It stops growing
// once the activity has ended and is zero while inactive.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state.Phase {
	case PhaseActive:
		return c.now().Sub(c.state.StartedAt)
	case PhaseRetiring:
		return c.state.EndedAt.Sub(c.state.StartedAt)
	default:
		return 0
	}
}

func (c *Controller) retire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseRetiring || c.state.ID != id {
		return
	}
	c.state = State{}
	c.timer = nil
	c.logger.Debug("activity dismissed", "id", id)
}

// dismissLocked removes the current activity immediately. Caller holds mu.
func (c *Controller) dismissLocked(content Content) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if err := c.host.End(c.state.ID, content, 0); err != nil {
		c.logger.Warn("dismissing activity failed", "id", c.state.ID, "err", err)
	}
	c.state = State{}
}

func clamp(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
