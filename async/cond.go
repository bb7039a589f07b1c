// Package async provides the default raft.AsyncProvider: a cooperative
// suspension point built on sync.Cond instead of a busy-poll loop.
package async

import "sync"

// CondProvider implements raft.AsyncProvider on top of a sync.Cond. Await
// parks the calling goroutine until predicate returns true or a Notify
// wakes it up to re-check; it never polls on a timer.
//
// Node calls Notify (via the optional interface it type-asserts for)
// after every state mutation, so Await only ever spins when a spurious
// wakeup leaves predicate still false, which sync.Cond's contract already
// requires callers to handle.
type CondProvider struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewCondProvider constructs a ready-to-use CondProvider.
func NewCondProvider() *CondProvider {
	p := &CondProvider{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Await blocks until predicate() returns true. predicate is free to lock
// whatever state it closes over; it must not attempt to lock p's own
// mutex, which it never needs to since p.mu guards only the condition
// variable bookkeeping, not caller state.
func (p *CondProvider) Await(predicate func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !predicate() {
		p.cond.Wait()
	}
}

// Notify wakes every goroutine currently parked in Await so they can
// re-evaluate their predicates. Safe to call whether or not anyone is
// waiting.
func (p *CondProvider) Notify() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}
