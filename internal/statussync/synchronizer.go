// Package statussync keeps the last-known status of tracked pipelines and
// notifies subscribers when a refresh observes a change.
package statussync

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/prts-dev/pipesync/internal/domain"
)

type entry struct {
	snapshot *domain.Pipeline // nil until the first successful fetch
	issued   uint64
	applied  uint64
}

type subscription struct {
	id  int
	sub Subscriber
}

// Synchronizer tracks pipelines by ID and reconciles them with the server.
//
// mu guards all state and is never held across a fetch. applyMu serializes
// snapshot replacement together with subscriber notification, so subscribers
// observe events in apply order.
type Synchronizer struct {
	source domain.PipelineSource
	logger *log.Logger

	applyMu sync.Mutex

	mu        sync.Mutex
	entries   map[string]*entry
	order     []string
	subs      []subscription
	nextSub   int
	anomalies int
}

// New creates a Synchronizer reading through source.
func New(source domain.PipelineSource, logger *log.Logger) *Synchronizer {
	return &Synchronizer{
		source:  source,
		logger:  logger.WithPrefix("statussync"),
		entries: make(map[string]*entry),
	}
}

// Subscribe registers sub and returns a function that removes it.
// Subscribers are notified in subscription order.
func (s *Synchronizer) Subscribe(sub Subscriber) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, sub: sub})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(x subscription) bool { return x.id == id })
	}
}

// Track starts tracking id. Its status is unknown until the first refresh.
// Tracking an already tracked ID is a no-op.
func (s *Synchronizer) Track(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return
	}
	s.entries[id] = &entry{}
	s.order = append(s.order, id)
}

// Untrack stops tracking id and forgets its snapshot.
// A fetch for id that is still in flight is discarded when it completes.
func (s *Synchronizer) Untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
}

// Tracked returns the tracked IDs in the order they were first tracked.
func (s *Synchronizer) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Snapshot returns the last-known state of id. ok is false when id is not
// tracked or has not been fetched yet.
func (s *Synchronizer) Snapshot(id string) (p domain.Pipeline, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, tracked := s.entries[id]
	if !tracked || e.snapshot == nil {
		return domain.Pipeline{}, false
	}
	return clonePipeline(*e.snapshot), true
}

// Anomalies returns how many times a terminal status was contradicted by a
// later fetch.
func (s *Synchronizer) Anomalies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anomalies
}

// Refresh fetches id from the source and reconciles it with the last-known
// snapshot. It returns the snapshot in effect after reconciliation; a result
// that loses the ordering check leaves the stored snapshot in place. A failed
// fetch that was already superseded by a newer applied one is not reported.
//
// Errors: ErrNotTracked when id is not tracked (before or after the fetch),
// *FetchError when the source fails.
func (s *Synchronizer) Refresh(ctx context.Context, id string) (domain.Pipeline, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return domain.Pipeline{}, ErrNotTracked
	}
	e.issued++
	seq := e.issued
	s.mu.Unlock()

	fetched, fetchErr := s.source.GetPipeline(ctx, id)

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	if cur, ok := s.entries[id]; !ok || cur != e {
		s.mu.Unlock()
		s.logger.Debug("discarding result for untracked pipeline", "id", id)
		return domain.Pipeline{}, ErrNotTracked
	}

	if fetchErr != nil && e.snapshot != nil && seq < e.applied {
		current := clonePipeline(*e.snapshot)
		s.mu.Unlock()
		s.logger.Debug("ignoring failure of a superseded refresh", "id", id, "seq", seq, "err", fetchErr)
		return current, nil
	}
	if fetchErr != nil {
		subs := s.subscribers()
		s.mu.Unlock()
		err := &FetchError{ID: id, Err: fetchErr}
		s.logger.Warn("refresh failed", "id", id, "err", fetchErr)
		for _, sub := range subs {
			sub.OnFetchFailed(id, err)
		}
		return domain.Pipeline{}, err
	}

	if e.snapshot != nil && isStale(*e.snapshot, fetched, seq, e.applied) {
		current := clonePipeline(*e.snapshot)
		s.mu.Unlock()
		s.logger.Debug("discarding stale result", "id", id, "seq", seq)
		return current, nil
	}

	prev := e.snapshot
	next := clonePipeline(fetched)
	e.snapshot = &next
	e.applied = max(e.applied, seq)

	anomaly := prev != nil && prev.Status.IsTerminal() && fetched.Status != prev.Status
	if anomaly {
		s.anomalies++
	}
	var transition *Transition
	if prev != nil && IsTransition(*prev, fetched) {
		transition = &Transition{ID: id, Old: clonePipeline(*prev), New: clonePipeline(fetched)}
	}
	subs := s.subscribers()
	s.mu.Unlock()

	if anomaly {
		s.logger.Warn("terminal status changed for the same run; accepting server state",
			"id", id, "from", prev.Status, "to", fetched.Status)
	}
	if transition != nil {
		s.logger.Debug("transition", "id", id, "from", transition.Old.Status, "to", transition.New.Status)
		for _, sub := range subs {
			sub.OnTransition(*transition)
		}
	}
	return clonePipeline(fetched), nil
}

// subscribers returns a copy of the subscriber list. Caller holds mu.
func (s *Synchronizer) subscribers() []Subscriber {
	out := make([]Subscriber, len(s.subs))
	for i, x := range s.subs {
		out[i] = x.sub
	}
	return out
}
