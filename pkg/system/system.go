// Package system wires the tasks of the device application together.
package system

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"sync"

	"github.com/robotalks/rtloop/pkg/decrypt"
	"github.com/robotalks/rtloop/pkg/edge"
	fx "github.com/robotalks/rtloop/pkg/framework"
	"github.com/robotalks/rtloop/pkg/gpio"
	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/periodic"
	"github.com/robotalks/rtloop/pkg/rtos"
)

// Task names.
const (
	TaskIncrementer = "task_1"
	TaskDecrementer = "task_2"
	TaskEdgeWorker  = "ISR"
	TaskPipeline    = "task_3"
)

// Options configures a System.
type Options struct {
	// EdgeSource raises the push button interrupt. Required.
	EdgeSource gpio.EdgeSource
	// ByteSource carries ciphertext. The decryption task is only
	// created when it is set.
	ByteSource decrypt.ByteSource
	Cipher     cipher.Block

	Periodic    periodic.Config
	SyncCounter bool
	Decrypt     decrypt.Config

	Observer observe.Observer
	// Drivers are started before the tasks, e.g. the serial receiver.
	Drivers []fx.Runnable
}

// ErrNoEdgeSource indicates Options.EdgeSource is missing.
var ErrNoEdgeSource = errors.New("edge source required")

// System owns all shared state. Nothing is global.
type System struct {
	Options Options

	Counter  *periodic.SharedCounter
	Edges    *edge.Counter
	Notify   *rtos.Notification
	Bridge   *edge.Bridge
	Observer observe.Observer

	Incrementer *periodic.Worker
	Decrementer *periodic.Worker
	EdgeWorker  *edge.Worker
	Pipeline    *decrypt.Pipeline

	runner *fx.Runner
}

// New performs setup. Any failure here is fatal, there is no
// degraded mode.
func New(opts Options) (*System, error) {
	if opts.EdgeSource == nil {
		return nil, ErrNoEdgeSource
	}
	if opts.ByteSource != nil && opts.Cipher == nil {
		return nil, errors.New("cipher required with byte source")
	}
	if opts.Observer == nil {
		opts.Observer = observe.Log{}
	}
	s := &System{
		Options:  opts,
		Counter:  &periodic.SharedCounter{},
		Edges:    &edge.Counter{},
		Notify:   rtos.NewNotification(),
		Observer: opts.Observer,
	}
	s.Bridge = edge.NewBridge(s.Edges, s.Notify)
	if err := s.Bridge.Bind(opts.EdgeSource); err != nil {
		return nil, fmt.Errorf("setup push button: %w", err)
	}
	return s, nil
}

// Start creates all tasks with a runner on ctx.
func (s *System) Start(ctx context.Context) *fx.Runner {
	return s.StartWith(fx.NewRunnerWith(ctx))
}

// StartWith creates all tasks on runner. A task which fails to be
// created is reported and the others still run.
func (s *System) StartWith(runner *fx.Runner) *fx.Runner {
	s.runner = runner
	s.runner.Go(s.Options.Drivers...)

	pconf := s.Options.Periodic
	if s.Options.SyncCounter {
		pconf.Guard = &sync.Mutex{}
	}
	s.runner.Create(TaskIncrementer, func() (fx.Runnable, error) {
		conf := pconf
		conf.Name = TaskIncrementer
		w, err := periodic.NewIncrementer(conf, s.Counter, s.Observer)
		s.Incrementer = w
		return w, err
	})
	s.runner.Create(TaskDecrementer, func() (fx.Runnable, error) {
		conf := pconf
		conf.Name = TaskDecrementer
		w, err := periodic.NewDecrementer(conf, s.Counter, s.Observer)
		s.Decrementer = w
		return w, err
	})
	s.runner.Create(TaskEdgeWorker, func() (fx.Runnable, error) {
		w, err := edge.NewWorker(TaskEdgeWorker, s.Edges, s.Notify, s.Observer)
		s.EdgeWorker = w
		return w, err
	})
	if s.Options.ByteSource != nil {
		s.runner.Create(TaskPipeline, func() (fx.Runnable, error) {
			p, err := decrypt.NewPipeline(s.Options.Decrypt, s.Options.ByteSource, s.Options.Cipher, s.Observer)
			if p != nil {
				p.Name = TaskPipeline
			}
			s.Pipeline = p
			return p, err
		})
	}

	s.Observer.Observe(observe.Record{Source: "main", Kind: observe.KindTask, Text: "Starting main app."})
	return s.runner
}

// Wait parks the caller until all tasks stop.
func (s *System) Wait() error {
	if s.runner == nil {
		return nil
	}
	return s.runner.Wait()
}
