// Package gpio models the digital input which raises edge interrupts.
package gpio

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Edge selects which transitions raise the interrupt.
type Edge int

// Edge polarities.
const (
	EdgeFalling Edge = iota
	EdgeRising
	EdgeBoth
)

// String implements fmt.Stringer.
func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeBoth:
		return "both"
	}
	return "falling"
}

// ParseEdge parses an edge polarity name.
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(s) {
	case "falling", "negedge", "":
		return EdgeFalling, nil
	case "rising", "posedge":
		return EdgeRising, nil
	case "both", "any":
		return EdgeBoth, nil
	}
	return EdgeFalling, fmt.Errorf("unknown edge polarity %q", s)
}

// Matches tells whether a transition from level prev to level next qualifies.
func (e Edge) Matches(prev, next bool) bool {
	if prev == next {
		return false
	}
	switch e {
	case EdgeRising:
		return next
	case EdgeBoth:
		return true
	}
	return !next
}

// EdgeHandler is called in interrupt context on each qualifying edge.
type EdgeHandler func()

// EdgeSource raises edge interrupts.
type EdgeSource interface {
	// OnEdge installs the interrupt handler.
	OnEdge(EdgeHandler) error
}

// MaxPin is the highest valid pin number.
const MaxPin = 39

var (
	// ErrHandlerInstalled indicates a handler is already installed on the pin.
	ErrHandlerInstalled = errors.New("edge handler already installed")
	// ErrNilHandler indicates the handler is nil.
	ErrNilHandler = errors.New("nil edge handler")
)

// InvalidPinError reports an out of range pin number.
type InvalidPinError struct {
	Pin int
}

// Error implements error.
func (e *InvalidPinError) Error() string {
	return fmt.Sprintf("invalid gpio pin %d", e.Pin)
}

// Config configures an input pin.
type Config struct {
	Pin    int
	Edge   Edge
	PullUp bool
}

// DefaultConfig is the push button: pin 33, pull-up, falling edge.
var DefaultConfig = Config{Pin: 33, Edge: EdgeFalling, PullUp: true}

// Validate checks the pin number.
func (c Config) Validate() error {
	if c.Pin < 0 || c.Pin > MaxPin {
		return &InvalidPinError{Pin: c.Pin}
	}
	return nil
}

// SimPin is a simulated digital input. With pull-up enabled it idles high
// and an active-low press drives it low.
type SimPin struct {
	Config Config

	lock    sync.Mutex
	level   bool
	handler EdgeHandler
	edges   int
}

// NewSimPin creates a SimPin at its idle level.
func NewSimPin(conf Config) (*SimPin, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &SimPin{Config: conf, level: conf.PullUp}, nil
}

// OnEdge implements EdgeSource.
func (p *SimPin) OnEdge(h EdgeHandler) error {
	if h == nil {
		return ErrNilHandler
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.handler != nil {
		return ErrHandlerInstalled
	}
	p.handler = h
	return nil
}

// Level returns the current level, true is high.
func (p *SimPin) Level() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.level
}

// Edges returns the number of interrupts raised.
func (p *SimPin) Edges() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.edges
}

// Set drives the pin and raises the interrupt on a qualifying edge.
// Handlers are serialized like a single interrupt line.
func (p *SimPin) Set(level bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	prev := p.level
	p.level = level
	if p.Config.Edge.Matches(prev, level) {
		p.edges++
		if p.handler != nil {
			p.handler()
		}
	}
}

// reset sets the level without raising an interrupt.
func (p *SimPin) reset(level bool) {
	p.lock.Lock()
	p.level = level
	p.lock.Unlock()
}

// Press drives the pin to its active level.
func (p *SimPin) Press() {
	p.Set(!p.Config.PullUp)
}

// Release returns the pin to its idle level.
func (p *SimPin) Release() {
	p.Set(p.Config.PullUp)
}

// Pulse presses and releases n times.
func (p *SimPin) Pulse(n int) {
	for i := 0; i < n; i++ {
		p.Press()
		p.Release()
	}
}
