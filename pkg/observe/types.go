// Package observe carries observation records from tasks to log sinks.
package observe

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Kind identifies what a record reports.
type Kind string

// Record kinds.
const (
	KindTask       Kind = "task"
	KindCounter    Kind = "counter"
	KindEdge       Kind = "edge"
	KindCiphertext Kind = "ciphertext"
	KindPlaintext  Kind = "plaintext"
	KindWarning    Kind = "warning"
)

// Record is one observation event.
type Record struct {
	Time   time.Time
	Source string
	Kind   Kind
	Value  int64
	Data   []byte
	Text   string
}

// String formats the record as a single log line.
func (r Record) String() string {
	switch r.Kind {
	case KindCounter:
		return fmt.Sprintf("%s (%s): Counter = %d", r.Text, r.Source, r.Value)
	case KindEdge:
		return fmt.Sprintf("Missed %d flanks since last isr handling call.", r.Value)
	case KindCiphertext:
		return "Encrypted Data Received: " + r.Text
	case KindPlaintext:
		return "Decrypted String: " + r.Text
	}
	if r.Source != "" {
		return r.Source + ": " + r.Text
	}
	return r.Text
}

// HexDump formats bytes the way ciphertext is reported.
func HexDump(data []byte) string {
	items := make([]string, len(data))
	for n, b := range data {
		items[n] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(items, " ")
}

// Observer receives records. Observe must not block for long,
// tasks call it inline.
type Observer interface {
	Observe(Record)
}

// ObserveFunc is the func form of Observer.
type ObserveFunc func(Record)

// Observe implements Observer.
func (f ObserveFunc) Observe(r Record) {
	f(r)
}

// Mux fans records out to multiple observers.
type Mux struct {
	Observers []Observer
}

// Add adds observers; nil is skipped.
func (m *Mux) Add(observers ...Observer) *Mux {
	for _, o := range observers {
		if o != nil {
			m.Observers = append(m.Observers, o)
		}
	}
	return m
}

// Observe implements Observer.
func (m *Mux) Observe(r Record) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	for _, o := range m.Observers {
		o.Observe(r)
	}
}

// Discard drops all records.
var Discard Observer = ObserveFunc(func(Record) {})

type latestKey struct {
	source string
	kind   Kind
}

// Latest keeps the last record per source and kind.
type Latest struct {
	lock    sync.RWMutex
	records map[latestKey]Record
	count   map[Kind]int
}

// Observe implements Observer.
func (l *Latest) Observe(r Record) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.records == nil {
		l.records = make(map[latestKey]Record)
		l.count = make(map[Kind]int)
	}
	l.records[latestKey{source: r.Source, kind: r.Kind}] = r
	l.count[r.Kind]++
}

// Get returns the last record from source of kind.
func (l *Latest) Get(source string, kind Kind) (Record, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	r, ok := l.records[latestKey{source: source, kind: kind}]
	return r, ok
}

// Count returns how many records of kind were observed.
func (l *Latest) Count(kind Kind) int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.count[kind]
}
