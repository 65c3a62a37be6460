package server

import (
	"time"

	"github.com/tugochat/tugochat/pkg/utils"
)

// pullEvent is a single viewer pull. Events only live inside a side's
// sliding window and are discarded once they age out.
type pullEvent struct {
	viewerId string
	at       time.Time
}

// pullWindow keeps a side's recent pulls in time-ascending order and answers
// unique-puller queries over the trailing window. It is owned by a single
// match goroutine and needs no locking.
type pullWindow struct {
	window time.Duration
	events []pullEvent
	counts map[string]int // in-window pulls per viewer
}

func newPullWindow(window time.Duration) *pullWindow {
	return &pullWindow{
		window: window,
		counts: make(map[string]int),
	}
}

// Record inserts a pull and evicts events that have aged out relative to at.
// Eviction only ever pops from the oldest end, so inserts stay amortized
// O(1) regardless of chat volume.
func (w *pullWindow) Record(viewerId string, at time.Time) {
	w.evict(at)
	w.events = append(w.events, pullEvent{viewerId: viewerId, at: at})
	w.counts[viewerId]++
}

// UniquePullers counts distinct viewers with at least one pull inside the
// window ending at now. A viewer pulling many times still counts once.
func (w *pullWindow) UniquePullers(now time.Time) int {
	w.evict(now)
	return len(w.counts)
}

// EngagementRate returns the unique-puller share of totalViewers, in [0, 1].
func (w *pullWindow) EngagementRate(now time.Time, totalViewers int) float64 {
	return utils.EngagementRate(w.UniquePullers(now), totalViewers)
}

func (w *pullWindow) evict(now time.Time) {
	for len(w.events) > 0 && now.Sub(w.events[0].at) >= w.window {
		ev := w.events[0]
		w.events = w.events[1:]
		if c := w.counts[ev.viewerId]; c <= 1 {
			delete(w.counts, ev.viewerId)
		} else {
			w.counts[ev.viewerId] = c - 1
		}
	}
}
