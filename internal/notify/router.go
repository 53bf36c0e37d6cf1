package notify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/liveactivity"
)

// Outcome reports what Route did with a payload.
type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeAlert
	OutcomePipeline
	// OutcomeTrackedPipeline means the payload also reached the live activity
	// and triggered a refresh.
	OutcomeTrackedPipeline
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlert:
		return "alert"
	case OutcomePipeline:
		return "pipeline"
	case OutcomeTrackedPipeline:
		return "tracked-pipeline"
	default:
		return "dropped"
	}
}

// Navigator receives navigation signals. Views decide what to do with them.
type Navigator interface {
	NavigateToPipeline(id string)
	NavigateToAlerts(id string)
}

// Tracker reports which pipeline the live activity mirrors.
type Tracker interface {
	TrackedPipeline() string
}

// Activity is the live activity surface the router may update directly.
type Activity interface {
	State() liveactivity.State
	Update(status domain.Status, stage string, progress float64, elapsed string)
	End(final domain.Status)
}

// Refresher re-fetches a tracked pipeline.
type Refresher interface {
	Refresh(ctx context.Context, id string) (domain.Pipeline, error)
}

// Router dispatches push payloads. Tracker, Activity and Refresher are
// optional; without them pipeline payloads only navigate.
type Router struct {
	nav       Navigator
	tracker   Tracker
	activity  Activity
	refresher Refresher
	logger    *log.Logger
}

// NewRouter creates a Router.
func NewRouter(nav Navigator, tracker Tracker, activity Activity, refresher Refresher, logger *log.Logger) *Router {
	return &Router{
		nav:       nav,
		tracker:   tracker,
		activity:  activity,
		refresher: refresher,
		logger:    logger.WithPrefix("notify"),
	}
}

// Route handles one payload. Unrecognized payloads are dropped without error.
func (r *Router) Route(ctx context.Context, p Payload) Outcome {
	id := p.TargetID()
	switch p.Type {
	case TypeAlert:
		r.nav.NavigateToAlerts(id)
		return OutcomeAlert
	case TypePipeline:
		if id == "" {
			r.logger.Warn("dropping pipeline payload without id")
			return OutcomeDropped
		}
		r.nav.NavigateToPipeline(id)
		if r.tracker == nil || r.tracker.TrackedPipeline() != id {
			return OutcomePipeline
		}
		if r.activity != nil && p.hasLiveFields() {
			r.applyLive(p)
		}
		if r.refresher != nil {
			if _, err := r.refresher.Refresh(ctx, id); err != nil {
				r.logger.Warn("refresh after push failed", "id", id, "err", err)
			}
		}
		return OutcomeTrackedPipeline
	default:
		r.logger.Debug("dropping payload", "type", p.Type)
		return OutcomeDropped
	}
}

// applyLive pushes the payload's live fields onto the activity. Missing
// fields keep their current values.
func (r *Router) applyLive(p Payload) {
	cur := r.activity.State().Content

	status := cur.Status
	if p.Status != "" {
		if s := domain.Status(p.Status); s.Valid() {
			status = s
		} else {
			r.logger.Warn("ignoring unknown status in push payload", "status", p.Status)
		}
	}
	if status.IsTerminal() {
		r.activity.End(status)
		return
	}

	stage := cur.CurrentStage
	if p.Stage != "" {
		stage = p.Stage
	}
	progress := cur.Progress
	if p.Progress != nil {
		progress = *p.Progress
	}
	elapsed := cur.ElapsedTime
	if p.Elapsed != "" {
		elapsed = p.Elapsed
	}
	r.activity.Update(status, stage, progress, elapsed)
}

// Consume routes newline-delimited JSON payloads from in until it is
// exhausted or ctx is cancelled. Malformed lines are logged and skipped.
func (r *Router) Consume(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		p, err := ParsePayload(line)
		if err != nil {
			r.logger.Warn("skipping malformed payload", "err", err)
			continue
		}
		outcome := r.Route(ctx, p)
		r.logger.Debug("routed payload", "type", p.Type, "outcome", outcome)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading push payloads: %w", err)
	}
	return nil
}
