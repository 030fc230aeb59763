package edge

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/rtos"
)

// State is the worker state.
type State int32

// Worker states.
const (
	StateWaiting State = iota
	StateDraining
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == StateDraining {
		return "Draining"
	}
	return "Waiting"
}

// Worker parks until the bridge resumes it, then drains one edge.
type Worker struct {
	Name     string
	Counter  *Counter
	Notify   *rtos.Notification
	Observer observe.Observer

	state    int32
	drains   uint32
	spurious uint32
}

// NewWorker creates a Worker sharing counter and notify with a Bridge.
func NewWorker(name string, counter *Counter, notify *rtos.Notification, observer observe.Observer) (*Worker, error) {
	if counter == nil || notify == nil {
		return nil, errors.New("edge counter and notification required")
	}
	if observer == nil {
		observer = observe.Discard
	}
	return &Worker{Name: name, Counter: counter, Notify: notify, Observer: observer}, nil
}

// State returns the current state.
func (w *Worker) State() State {
	return State(atomic.LoadInt32(&w.state))
}

// Drains returns the number of completed drains.
func (w *Worker) Drains() uint32 {
	return atomic.LoadUint32(&w.drains)
}

// Spurious returns the number of wakes which found no pending edge.
func (w *Worker) Spurious() uint32 {
	return atomic.LoadUint32(&w.spurious)
}

// Run implements Runnable.
func (w *Worker) Run(ctx context.Context) error {
	for {
		atomic.StoreInt32(&w.state, int32(StateWaiting))
		if err := w.Notify.Take(ctx); err != nil {
			return err
		}
		atomic.StoreInt32(&w.state, int32(StateDraining))
		remaining, ok := w.Counter.Drain()
		if ok {
			atomic.AddUint32(&w.drains, 1)
			w.Observer.Observe(observe.Record{Source: w.Name, Kind: observe.KindEdge, Value: int64(remaining)})
		} else {
			atomic.AddUint32(&w.spurious, 1)
			w.Observer.Observe(observe.Record{Source: w.Name, Kind: observe.KindWarning, Text: "woken with no pending edge"})
		}
	}
}
