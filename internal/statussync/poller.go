package statussync

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultInterval       = 30 * time.Second
	defaultActiveInterval = 5 * time.Second
)

// Poller refreshes every tracked pipeline on an adaptive interval: fast while
// anything is running or not yet known, slow once everything has settled.
type Poller struct {
	sync           *Synchronizer
	logger         *log.Logger
	Interval       time.Duration
	ActiveInterval time.Duration
}

// NewPoller creates a Poller with the default intervals.
func NewPoller(s *Synchronizer, logger *log.Logger) *Poller {
	return &Poller{
		sync:           s,
		logger:         logger.WithPrefix("poller"),
		Interval:       defaultInterval,
		ActiveInterval: defaultActiveInterval,
	}
}

// Run polls until ctx is cancelled and returns ctx.Err().
// Fetch failures are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	for {
		p.Tick(ctx)
		timer := time.NewTimer(p.NextInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick refreshes every tracked pipeline once.
func (p *Poller) Tick(ctx context.Context) {
	for _, id := range p.sync.Tracked() {
		if ctx.Err() != nil {
			return
		}
		if _, err := p.sync.Refresh(ctx, id); err != nil && !errors.Is(err, ErrNotTracked) {
			p.logger.Debug("tick refresh failed", "id", id, "err", err)
		}
	}
}

// NextInterval returns ActiveInterval while any tracked pipeline is unknown
// or not terminal, and Interval otherwise.
func (p *Poller) NextInterval() time.Duration {
	for _, id := range p.sync.Tracked() {
		snap, ok := p.sync.Snapshot(id)
		if !ok || !snap.Status.IsTerminal() {
			return orDefault(p.ActiveInterval, defaultActiveInterval)
		}
	}
	return orDefault(p.Interval, defaultInterval)
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
