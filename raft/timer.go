package raft

import (
	"math/rand"
	"time"
)

// Timer is a scoped, re-armable deadline with optional uniform jitter.
// It is the core's only dependency on wall-clock time; everything else
// flows through the RPC/Async contracts.
type Timer struct {
	interval time.Duration
	splay    time.Duration
	deadline time.Time

	// now and random are overridable so tests can drive the timer
	// deterministically instead of sleeping in wall-clock time.
	now    func() time.Time
	random func(n time.Duration) time.Duration
}

// NewTimer creates a Timer armed to fire interval + uniform(0, splay) from
// now. splay of 0 yields no jitter (used for the leader's heartbeat tick).
func NewTimer(interval, splay time.Duration) *Timer {
	t := &Timer{
		interval: interval,
		splay:    splay,
		now:      time.Now,
		random:   defaultJitter,
	}
	t.Reset()
	return t
}

func defaultJitter(n time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(n)))
}

// Reset arms a new deadline at now + interval + uniform(0, splay).
func (t *Timer) Reset() {
	t.deadline = t.now().Add(t.interval).Add(t.random(t.splay))
}

// TimedOut reports whether the deadline has passed.
func (t *Timer) TimedOut() bool {
	return !t.now().Before(t.deadline)
}

// Deadline returns the current deadline, for diagnostics.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}
