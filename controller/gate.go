package controller

import (
	"time"

	"github.com/benbjohnson/clock"
)

// recomputeGate implements a leading-edge debounce with deferred
// catch-up: the first call after an idle period (or after the debounce
// window has elapsed) runs immediately; any call arriving within the
// window of the last run is dropped, but exactly one deferred run is
// scheduled for when the window closes, so an edit that arrives mid-window
// is never lost. This is modeled on the same deadline-vs-clock comparison
// a one-shot click guard uses, generalized to a repeatedly reset deadline.
type recomputeGate struct {
	clock       clock.Clock
	debounce    time.Duration
	lastRun     time.Time
	deadline    time.Time
	hasDeadline bool
}

func newRecomputeGate(c clock.Clock, debounce time.Duration) *recomputeGate {
	return &recomputeGate{clock: c, debounce: debounce}
}

// Allow reports whether the caller should run its work immediately.
func (g *recomputeGate) Allow() bool {
	now := g.clock.Now()
	if g.lastRun.IsZero() || now.Sub(g.lastRun) >= g.debounce {
		g.lastRun = now
		g.hasDeadline = false
		return true
	}
	g.deadline = g.lastRun.Add(g.debounce)
	g.hasDeadline = true
	return false
}

// Poll reports whether a previously deferred run's deadline has now
// passed; it fires at most once per Allow-returned-false sequence.
func (g *recomputeGate) Poll() bool {
	if !g.hasDeadline || g.clock.Now().Before(g.deadline) {
		return false
	}
	g.hasDeadline = false
	g.lastRun = g.clock.Now()
	return true
}
