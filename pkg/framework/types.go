// Package framework provides the task runtime used by all rtloop tasks.
package framework

import "context"

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable is a task body. It runs until the task finishes,
// fails or the context is canceled.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// TaskFactory builds a task. A factory error means the task
// could not be created.
type TaskFactory func() (Runnable, error)
