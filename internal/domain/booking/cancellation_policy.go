package booking

import "time"

// DefaultCancellationWindow is how long after creation a pending booking may be cancelled.
const DefaultCancellationWindow = 12 * time.Hour

// CancellationPolicy decides whether a booking created at createdAt may still be cancelled at now.
type CancellationPolicy interface {
	IsCancellable(createdAt, now time.Time) bool
	Window() time.Duration
}

// WindowPolicy allows cancellation up to and including Window after creation.
// The window is anchored to the creation time, not the event date.
type WindowPolicy struct {
	window time.Duration
}

// NewWindowPolicy creates a WindowPolicy with the given window.
func NewWindowPolicy(window time.Duration) WindowPolicy {
	return WindowPolicy{window: window}
}

// NewDefaultCancellationPolicy returns the 12-hour policy.
func NewDefaultCancellationPolicy() WindowPolicy {
	return NewWindowPolicy(DefaultCancellationWindow)
}

// IsCancellable reports whether now - createdAt <= window.
func (p WindowPolicy) IsCancellable(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= p.window
}

// Window returns the configured window.
func (p WindowPolicy) Window() time.Duration { return p.window }
