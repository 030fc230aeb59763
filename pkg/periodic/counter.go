// Package periodic provides the periodic tasks racing on a shared counter.
package periodic

import "sync/atomic"

// SharedCounter is a signed counter shared by periodic workers.
//
// Loads and stores are single word accesses, but there is no
// read-modify-write operation: workers updating it concurrently lose
// updates. That hazard is intentional.
type SharedCounter struct {
	v int32
}

// Load reads the counter.
func (c *SharedCounter) Load() int32 {
	return atomic.LoadInt32(&c.v)
}

// Store writes the counter.
func (c *SharedCounter) Store(v int32) {
	atomic.StoreInt32(&c.v, v)
}
