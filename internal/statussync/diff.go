package statussync

import (
	"slices"

	"github.com/prts-dev/pipesync/internal/domain"
)

// IsTransition reports whether next differs from prev in pipeline status,
// stage count, or the ID or status of any stage at the same position.
// Display-only fields such as durations are ignored.
func IsTransition(prev, next domain.Pipeline) bool {
	if prev.Status != next.Status {
		return true
	}
	if len(prev.Stages) != len(next.Stages) {
		return true
	}
	for i := range prev.Stages {
		if prev.Stages[i].ID != next.Stages[i].ID || prev.Stages[i].Status != next.Stages[i].Status {
			return true
		}
	}
	return false
}

// isStale reports whether an incoming result must be discarded in favour of
// the stored one. Server timestamps win when both sides carry distinct ones;
// otherwise the refresh issue order decides.
func isStale(stored, incoming domain.Pipeline, seq, applied uint64) bool {
	if !stored.UpdatedAt.IsZero() && !incoming.UpdatedAt.IsZero() && !stored.UpdatedAt.Equal(incoming.UpdatedAt) {
		return incoming.UpdatedAt.Before(stored.UpdatedAt)
	}
	return seq < applied
}

func clonePipeline(p domain.Pipeline) domain.Pipeline {
	if p.Stages == nil {
		return p
	}
	p.Stages = slices.Clone(p.Stages)
	for i := range p.Stages {
		p.Stages[i].Jobs = slices.Clone(p.Stages[i].Jobs)
	}
	return p
}
