package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// ErrForcedExit is returned by Wait when a second stop signal arrives.
var ErrForcedExit = errors.New("forced exit")

// TaskError is the error of a task which stopped with failure.
type TaskError struct {
	Task string
	Err  error
}

// Error implements error.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

// Unwrap returns the task failure.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// Runner runs tasks, one goroutine per task, and collects errors.
type Runner struct {
	Context context.Context

	errCh  chan error
	exitCh chan struct{}

	lock    sync.Mutex
	tasks   []string
	failed  []string
	stopped int
}

// NewRunner creates a runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner with a specified context.
func NewRunnerWith(ctx context.Context) *Runner {
	return &Runner{
		Context: ctx,
		errCh:   make(chan error, 4),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals cancels the runner context on Ctrl-C or SIGTERM.
// A second signal forces Wait to return.
func (r *Runner) HandleSignals() *Runner {
	ctx, cancel := context.WithCancel(r.Context)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	r.Context = ctx
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Create builds a task with factory and spawns it. A factory failure
// is reported and the runner proceeds without the task.
func (r *Runner) Create(name string, factory TaskFactory) bool {
	task, err := factory()
	if err == nil && task == nil {
		err = errors.New("no task returned")
	}
	if err != nil {
		glog.Errorf("%s task creation failed: %v", name, err)
		r.lock.Lock()
		r.failed = append(r.failed, name)
		r.lock.Unlock()
		return false
	}
	r.Go(NamedRun(name, task))
	return true
}

// Go spawns Runnables with the runner context.
func (r *Runner) Go(runners ...Runnable) *Runner {
	return r.GoWith(r.Context, runners...)
}

// GoWith spawns Runnables with a specified context.
func (r *Runner) GoWith(ctx context.Context, runners ...Runnable) *Runner {
	for _, runner := range runners {
		r.lock.Lock()
		var name string
		if named, ok := runner.(Named); ok {
			name = named.Name()
		} else {
			name = strconv.Itoa(len(r.tasks))
		}
		r.tasks = append(r.tasks, name)
		r.lock.Unlock()
		glog.Infof("%s task created successfully.", name)
		go func(runner Runnable, name string) {
			glog.V(4).Infof("task[%s] started", name)
			err := runner.Run(ctx)
			if err != nil && err != context.Canceled {
				glog.Errorf("task[%s] stopped: %v", name, err)
				err = &TaskError{Task: name, Err: err}
			} else {
				glog.V(4).Infof("task[%s] stopped", name)
			}
			r.errCh <- err
		}(runner, name)
	}
	return r
}

// Tasks returns the names of created tasks.
func (r *Runner) Tasks() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.tasks...)
}

// Failed returns the names of tasks whose creation failed.
func (r *Runner) Failed() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.failed...)
}

// Wait blocks until all created tasks stop and aggregates their errors.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for {
		r.lock.Lock()
		done := r.stopped >= len(r.tasks)
		r.lock.Unlock()
		if done {
			return errs.Aggregate()
		}
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case err := <-r.errCh:
			r.lock.Lock()
			r.stopped++
			r.lock.Unlock()
			errs.Add(err)
		}
	}
}

// RunWithContextCancel runs a func which doesn't accept a context.
// onCancel is called only when the context is canceled.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// RunWithContextCloser runs fn and ensures closer is closed either on
// cancel or when fn returns. Closing is the only way to unblock fn.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var closed bool
	err := RunWithContextCancel(ctx, func() {
		closer.Close()
		closed = true
	}, fn)
	if !closed {
		closer.Close()
	}
	return err
}
