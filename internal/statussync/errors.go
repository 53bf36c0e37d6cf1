package statussync

import (
	"errors"
	"fmt"
)

// ErrNotTracked is returned by Refresh for an ID that is not tracked, or that
// was untracked while its fetch was in flight.
var ErrNotTracked = errors.New("pipeline not tracked")

// FetchError reports a failed fetch for a tracked pipeline.
type FetchError struct {
	ID  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching pipeline %s: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
