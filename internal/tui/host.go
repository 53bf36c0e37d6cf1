package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/prts-dev/pipesync/internal/liveactivity"
)

// ActivityEvent is the kind of change carried by an ActivityMsg.
type ActivityEvent int

const (
	ActivityStarted ActivityEvent = iota
	ActivityUpdated
	ActivityEnded
)

// ActivityMsg is sent by ProgramHost whenever the controller changes the activity.
// It is exported so that tests can inject it directly into WatchModel.Update.
type ActivityMsg struct {
	Event      ActivityEvent
	ID         string
	Attributes liveactivity.Attributes
	Content    liveactivity.Content
	Linger     time.Duration
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramHost renders the live activity as a card inside a running program.
type ProgramHost struct {
	sender Sender
}

var _ liveactivity.Host = (*ProgramHost)(nil)

// NewProgramHost creates a host that forwards activity changes to sender.
func NewProgramHost(sender Sender) *ProgramHost {
	return &ProgramHost{sender: sender}
}

func (h *ProgramHost) Enabled() bool { return h.sender != nil }

func (h *ProgramHost) Request(id string, attrs liveactivity.Attributes, content liveactivity.Content) error {
	h.sender.Send(ActivityMsg{Event: ActivityStarted, ID: id, Attributes: attrs, Content: content})
	return nil
}

func (h *ProgramHost) Update(id string, content liveactivity.Content) error {
	h.sender.Send(ActivityMsg{Event: ActivityUpdated, ID: id, Content: content})
	return nil
}

func (h *ProgramHost) End(id string, content liveactivity.Content, linger time.Duration) error {
	h.sender.Send(ActivityMsg{Event: ActivityEnded, ID: id, Content: content, Linger: linger})
	return nil
}

// LineHost prints one line per activity change. It is used when no program
// owns the terminal.
type LineHost struct {
	mu    sync.Mutex
	w     io.Writer
	attrs map[string]liveactivity.Attributes
}

var _ liveactivity.Host = (*LineHost)(nil)

// NewLineHost creates a LineHost writing to w.
func NewLineHost(w io.Writer) *LineHost {
	return &LineHost{w: w, attrs: make(map[string]liveactivity.Attributes)}
}

func (h *LineHost) Enabled() bool { return true }

func (h *LineHost) Request(id string, attrs liveactivity.Attributes, content liveactivity.Content) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs[id] = attrs
	return h.write("started", attrs, content)
}

func (h *LineHost) Update(id string, content liveactivity.Content) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.write("update", h.attrs[id], content)
}

// End prints the final line. A lingering activity keeps its attributes so a
// corrected final status can still be printed.
func (h *LineHost) End(id string, content liveactivity.Content, linger time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	attrs := h.attrs[id]
	if linger <= 0 {
		delete(h.attrs, id)
	}
	return h.write("ended", attrs, content)
}

func (h *LineHost) write(event string, attrs liveactivity.Attributes, c liveactivity.Content) error {
	_, err := fmt.Fprintf(h.w, "%-7s %s (%s)  %s  %s  %3.0f%%  %s\n",
		event,
		attrs.PipelineName,
		attrs.Branch,
		RenderStatus(c.Status),
		c.CurrentStage,
		c.Progress*100,
		c.ElapsedTime,
	)
	return err
}
