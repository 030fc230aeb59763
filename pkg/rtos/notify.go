// Package rtos provides the task primitives shared between interrupt
// handlers and tasks.
package rtos

import (
	"context"
	"time"
)

// Notification is a binary semaphore with a single pending slot.
// Give never blocks and may be called from an interrupt handler.
// A Give made before the waiter reaches Take is kept, not lost.
type Notification struct {
	ch chan struct{}
}

// NewNotification creates a Notification with no pending wake.
func NewNotification() *Notification {
	return &Notification{ch: make(chan struct{}, 1)}
}

// Give posts a wake. It returns false if a wake was already pending,
// in which case the two are coalesced.
func (n *Notification) Give() bool {
	select {
	case n.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Take blocks until a wake is pending and consumes it.
func (n *Notification) Take(ctx context.Context) error {
	select {
	case <-n.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports whether a wake is posted and not yet taken.
func (n *Notification) Pending() bool {
	return len(n.ch) > 0
}

// Sleep delays the calling task for d.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
