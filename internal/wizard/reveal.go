// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// reveal.go implements the frame-reveal animation that gates the
// Welcome -> Catalog transition. The animation is a fixed-length sequence
// of still frames; rather than mutating per-frame state on timers, the
// current frame is derived purely from the elapsed time since the reveal
// started. It cannot be cancelled and always completes after
// RevealFrameCount * RevealFrameInterval.
package wizard

import "time"

const (
	// RevealFrameCount is the number of still frames in the reveal sequence.
	RevealFrameCount = 24

	// RevealFrameInterval is the display time of a single frame.
	RevealFrameInterval = 80 * time.Millisecond
)

// Reveal records when the frame-reveal animation started. The zero value
// means the animation has not been started.
type Reveal struct {
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Start begins the animation at the given instant. Starting an already
// running or finished reveal is a no-op.
func (r *Reveal) Start(now time.Time) {
	if r.StartedAt == nil {
		t := now
		r.StartedAt = &t
	}
}

// Running reports whether the animation has started but not yet shown its
// final frame.
func (r *Reveal) Running(now time.Time) bool {
	return r.StartedAt != nil && !r.Done(now)
}

// Done reports whether the final frame has been reached.
func (r *Reveal) Done(now time.Time) bool {
	return r.StartedAt != nil && r.Frame(now) >= RevealFrameCount
}

// Frame returns the frame index visible at the given instant, in
// [0, RevealFrameCount]. Frame i being visible implies every frame j <= i
// has already been shown.
func (r *Reveal) Frame(now time.Time) int {
	if r.StartedAt == nil {
		return 0
	}
	elapsed := now.Sub(*r.StartedAt)
	if elapsed < 0 {
		return 0
	}
	frame := int(elapsed / RevealFrameInterval)
	if frame > RevealFrameCount {
		frame = RevealFrameCount
	}
	return frame
}
