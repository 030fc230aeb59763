package edge

import (
	"fmt"
	"sync/atomic"

	"github.com/robotalks/rtloop/pkg/gpio"
	"github.com/robotalks/rtloop/pkg/rtos"
)

// Bridge is the interrupt handler which records edges and resumes
// the worker. It is the only path from interrupt to task context.
type Bridge struct {
	Counter *Counter
	Notify  *rtos.Notification

	wakes uint32
}

// NewBridge creates a Bridge.
func NewBridge(counter *Counter, notify *rtos.Notification) *Bridge {
	return &Bridge{Counter: counter, Notify: notify}
}

// HandleEdge is the ISR body. It never blocks, logs or allocates.
// The edge is always counted, the wake is skipped if one is pending.
func (b *Bridge) HandleEdge() {
	b.Counter.Inc()
	if b.Notify.Give() {
		atomic.AddUint32(&b.wakes, 1)
	}
}

// Bind installs HandleEdge on src.
func (b *Bridge) Bind(src gpio.EdgeSource) error {
	if err := src.OnEdge(b.HandleEdge); err != nil {
		return fmt.Errorf("install edge handler: %w", err)
	}
	return nil
}

// Wakes returns the number of wakes posted to the worker.
func (b *Bridge) Wakes() uint32 {
	return atomic.LoadUint32(&b.wakes)
}
