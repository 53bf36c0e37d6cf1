package statussync

import "github.com/prts-dev/pipesync/internal/domain"

// Transition describes an observable change between two snapshots of one pipeline.
type Transition struct {
	ID  string
	Old domain.Pipeline
	New domain.Pipeline
}

// Subscriber receives synchronizer events. Callbacks run synchronously on the
// refreshing goroutine and must not call Refresh.
type Subscriber interface {
	OnTransition(Transition)
	OnFetchFailed(id string, err error)
}

// SubscriberFuncs adapts plain functions to Subscriber. Nil fields are skipped.
type SubscriberFuncs struct {
	Transition  func(Transition)
	FetchFailed func(id string, err error)
}

func (f SubscriberFuncs) OnTransition(tr Transition) {
	if f.Transition != nil {
		f.Transition(tr)
	}
}

func (f SubscriberFuncs) OnFetchFailed(id string, err error) {
	if f.FetchFailed != nil {
		f.FetchFailed(id, err)
	}
}
