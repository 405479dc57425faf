package controller

import "github.com/tteke/three-loader/profile"

// EventKind identifies the events ProfileController publishes as it
// aggregates request progress.
type EventKind int

const (
	RecomputedSegment EventKind = iota
	RecomputeFinished
)

// Event carries the optional per-segment payload for RecomputedSegment;
// Segment is nil for RecomputeFinished.
type Event struct {
	Kind    EventKind
	Segment *profile.Segment
}

// bus is the same small typed-publisher shape as profile.Bus, kept as its
// own type since controller events are a different closed set than
// profile's marker-mutation events.
type bus struct {
	subscribers []func(Event)
}

func (b *bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	idx := len(b.subscribers)
	b.subscribers = append(b.subscribers, fn)
	removed := false
	return func() {
		if removed || idx >= len(b.subscribers) {
			return
		}
		removed = true
		b.subscribers[idx] = nil
	}
}

func (b *bus) publish(e Event) {
	for _, fn := range b.subscribers {
		if fn != nil {
			fn(e)
		}
	}
}
