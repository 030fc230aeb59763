package periodic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/rtos"
)

// Default intervals.
const (
	DefaultRaceWindow = 100 * time.Millisecond
	DefaultPeriod     = 1000 * time.Millisecond
)

// Config configures a Worker.
type Config struct {
	Name  string
	Delta int32
	// RaceWindow is the delay between reading and writing the counter.
	RaceWindow time.Duration
	// Period is the delay after writing, before the next cycle.
	Period time.Duration
	// Cycles bounds the number of cycles, 0 runs forever.
	Cycles int
	// Guard, if set, is held from read to write. Workers sharing
	// a Guard do not lose updates.
	Guard sync.Locker
}

var (
	// ErrNoCounter indicates no SharedCounter is provided.
	ErrNoCounter = errors.New("shared counter required")
	// ErrZeroDelta indicates the worker would not change the counter.
	ErrZeroDelta = errors.New("delta must not be zero")
)

// Worker updates the SharedCounter by Delta every cycle.
type Worker struct {
	Config
	Counter  *SharedCounter
	Observer observe.Observer

	cycles int64
}

// NewWorker creates a Worker.
func NewWorker(conf Config, counter *SharedCounter, observer observe.Observer) (*Worker, error) {
	if counter == nil {
		return nil, ErrNoCounter
	}
	if conf.Delta == 0 {
		return nil, ErrZeroDelta
	}
	if observer == nil {
		observer = observe.Discard
	}
	return &Worker{Config: conf, Counter: counter, Observer: observer}, nil
}

// NewIncrementer creates a Worker adding 1 each cycle.
func NewIncrementer(conf Config, counter *SharedCounter, observer observe.Observer) (*Worker, error) {
	conf.Delta = 1
	return NewWorker(conf, counter, observer)
}

// NewDecrementer creates a Worker subtracting 1 each cycle.
func NewDecrementer(conf Config, counter *SharedCounter, observer observe.Observer) (*Worker, error) {
	conf.Delta = -1
	return NewWorker(conf, counter, observer)
}

// Cycles returns the completed cycles.
func (w *Worker) Cycles() int64 {
	return atomic.LoadInt64(&w.cycles)
}

// Run implements Runnable.
func (w *Worker) Run(ctx context.Context) error {
	for n := 0; w.Config.Cycles == 0 || n < w.Config.Cycles; n++ {
		v, err := w.update(ctx)
		if err != nil {
			return err
		}
		atomic.AddInt64(&w.cycles, 1)
		w.Observer.Observe(observe.Record{
			Source: w.Name,
			Kind:   observe.KindCounter,
			Value:  int64(v),
			Text:   w.action(),
		})
		if err := rtos.Sleep(ctx, w.Period); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) update(ctx context.Context) (int32, error) {
	if w.Guard != nil {
		w.Guard.Lock()
		defer w.Guard.Unlock()
	}
	v := w.Counter.Load()
	v += w.Delta
	if err := rtos.Sleep(ctx, w.RaceWindow); err != nil {
		return 0, err
	}
	w.Counter.Store(v)
	return w.Counter.Load(), nil
}

func (w *Worker) action() string {
	if w.Delta > 0 {
		return "Incremented"
	}
	return "Decremented"
}
