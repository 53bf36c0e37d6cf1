package liveactivity

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/statussync"
)

// Bridge feeds synchronizer transitions for one tracked pipeline into a Controller.
// It implements statussync.Subscriber and never fetches on its own.
//
// Following a pipeline and starting its activity are separate steps: once
// Follow has been called, whichever comes first of Begin or a transition for
// that pipeline starts the activity. Calls into the controller are serialized
// so a later snapshot is never overwritten by an earlier one.
type Bridge struct {
	ctrl   *Controller
	logger *log.Logger

	mu      sync.Mutex
	tracked string
	started bool
}

var _ statussync.Subscriber = (*Bridge)(nil)

// NewBridge creates a Bridge driving ctrl.
func NewBridge(ctrl *Controller, logger *log.Logger) *Bridge {
	return &Bridge{ctrl: ctrl, logger: logger.WithPrefix("bridge")}
}

// Follow makes id the tracked pipeline without starting an activity yet.
func (b *Bridge) Follow(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tracked != id {
		b.tracked = id
		b.started = false
	}
}

// Begin starts the activity for p if p is the followed pipeline and no
// transition has started it already.
func (b *Bridge) Begin(p domain.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID != b.tracked || b.started {
		return
	}
	b.startLocked(p)
}

// Track follows p and starts a new activity for it, replacing any current one.
func (b *Bridge) Track(p domain.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracked = p.ID
	b.startLocked(p)
}

// TrackedPipeline returns the ID of the pipeline mirrored on the activity.
func (b *Bridge) TrackedPipeline() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracked
}

// Controller returns the controller the bridge drives.
func (b *Bridge) Controller() *Controller { return b.ctrl }

// Apply shows p on the activity: a terminal status ends it, anything else updates it.
// A run that leaves its terminal status after the end gets a fresh activity.
func (b *Bridge) Apply(p domain.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyLocked(p)
}

func (b *Bridge) startLocked(p domain.Pipeline) {
	b.started = true
	first := defaultFirstStage
	if len(p.Stages) > 0 {
		first = p.Stages[0].Name
	}
	b.ctrl.Start(Attributes{PipelineName: p.Name, Branch: p.Branch}, first)
	b.applyLocked(p)
}

func (b *Bridge) applyLocked(p domain.Pipeline) {
	if p.Status.IsTerminal() {
		b.ctrl.End(p.Status)
		return
	}
	if b.ctrl.State().Phase == PhaseRetiring {
		b.startLocked(p)
		return
	}
	c := Project(p, b.ctrl.Elapsed())
	b.ctrl.Update(c.Status, c.CurrentStage, c.Progress, c.ElapsedTime)
}

func (b *Bridge) OnTransition(tr statussync.Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tr.ID != b.tracked {
		return
	}
	if !b.started {
		b.startLocked(tr.New)
		return
	}
	b.applyLocked(tr.New)
}

func (b *Bridge) OnFetchFailed(id string, err error) {
	if id == b.TrackedPipeline() {
		b.logger.Debug("keeping activity after failed fetch", "id", id, "err", err)
	}
}
