package liveactivity

import "time"

// Host is the surface a live activity is rendered on. Implementations must not
// call back into the Controller from these methods.
type Host interface {
	// Enabled reports whether the surface is available. A disabled host turns
	// every Controller operation into a no-op.
	Enabled() bool
	Request(id string, attrs Attributes, content Content) error
	Update(id string, content Content) error
	// End shows the final content and dismisses the activity after linger.
	End(id string, content Content, linger time.Duration) error
}

// DisabledHost is a Host that is never available.
type DisabledHost struct{}

func (DisabledHost) Enabled() bool { return false }
func (DisabledHost) Request(string, Attributes, Content) error { return nil }
func (DisabledHost) Update(string, Content) error { return nil }
func (DisabledHost) End(string, Content, time.Duration) error { return nil }
