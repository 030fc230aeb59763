// Package edge hands falling edges from interrupt context to a worker task.
package edge

import "sync/atomic"

// Counter counts edges not yet serviced. Inc is called from interrupt
// context, Drain from the worker task. The value never wraps below zero.
type Counter struct {
	n uint32
}

// Inc records one edge.
func (c *Counter) Inc() {
	atomic.AddUint32(&c.n, 1)
}

// Drain services one edge and returns the edges still pending.
// ok is false if there was nothing to drain; the counter stays at zero.
func (c *Counter) Drain() (remaining uint32, ok bool) {
	for {
		n := atomic.LoadUint32(&c.n)
		if n == 0 {
			return 0, false
		}
		if atomic.CompareAndSwapUint32(&c.n, n, n-1) {
			return n - 1, true
		}
	}
}

// Load returns the pending edges.
func (c *Counter) Load() uint32 {
	return atomic.LoadUint32(&c.n)
}
