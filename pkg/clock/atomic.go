package clock

import "sync/atomic"

// AtomicClock is a monotonic counter used to number flushed generations.
type AtomicClock struct {
	atomic.Uint64
}

func NewAtomic(init uint64) *AtomicClock {
	var ac AtomicClock
	ac.Set(init)
	return &ac
}

func (ac *AtomicClock) Val() uint64 {
	return ac.Load()
}

// Next reserves and returns the next value.
func (ac *AtomicClock) Next() uint64 {
	return ac.Add(1)
}

func (ac *AtomicClock) Set(t uint64) {
	ac.Store(t)
}

// Observe raises the clock to t if t is ahead of it.
func (ac *AtomicClock) Observe(t uint64) {
	for {
		cur := ac.Load()
		if t <= cur || ac.CompareAndSwap(cur, t) {
			return
		}
	}
}
