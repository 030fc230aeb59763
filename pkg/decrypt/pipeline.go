// Package decrypt polls a byte stream for ciphertext blocks and
// decrypts them with a pre-shared key.
package decrypt

import (
	"bytes"
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/rtos"
)

// ByteSource is a sequential byte stream, e.g. a serial port.
type ByteSource interface {
	// Buffered returns the number of bytes available to read.
	Buffered() (int, error)
	// Read reads up to len(p) bytes, waiting at most timeout for them.
	Read(p []byte, timeout time.Duration) (int, error)
}

// ExcessPolicy decides what happens to bytes after the first block.
type ExcessPolicy int

const (
	// ExcessDiscard reads a full buffer, only the first block is used.
	ExcessDiscard ExcessPolicy = iota
	// ExcessRetain reads one block, the rest stays for the next cycle.
	ExcessRetain
)

// ParseExcessPolicy parses "discard" or "retain".
func ParseExcessPolicy(s string) (ExcessPolicy, error) {
	switch s {
	case "discard", "":
		return ExcessDiscard, nil
	case "retain":
		return ExcessRetain, nil
	}
	return ExcessDiscard, fmt.Errorf("unknown excess policy %q", s)
}

// Config configures a Pipeline.
type Config struct {
	BlockSize      int
	ReadBufferSize int
	ReadTimeout    time.Duration
	PollInterval   time.Duration
	// PlaintextLen is where the decrypted block is terminated.
	PlaintextLen int
	Excess       ExcessPolicy
}

// DefaultConfig is the device configuration.
var DefaultConfig = Config{
	BlockSize:      16,
	ReadBufferSize: 256,
	ReadTimeout:    20 * time.Millisecond,
	PollInterval:   10 * time.Millisecond,
	PlaintextLen:   10,
	Excess:         ExcessDiscard,
}

func (c Config) withDefaults() Config {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultConfig.BlockSize
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultConfig.ReadBufferSize
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultConfig.ReadTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultConfig.PollInterval
	}
	if c.PlaintextLen == 0 {
		c.PlaintextLen = DefaultConfig.PlaintextLen
	}
	return c
}

// ReadError is a failure of the byte source. It halts the pipeline.
type ReadError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *ReadError) Error() string {
	return fmt.Sprintf("byte source %s: %v", e.Op, e.Err)
}

// Unwrap returns the source error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// State is the pipeline state.
type State int32

// Pipeline states.
const (
	StateIdle State = iota
	StateBlockReady
	StateDecrypting
)

var stateNames = [...]string{"Idle", "BlockReady", "Decrypting"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Pipeline is the decryption task.
type Pipeline struct {
	Name     string
	Config   Config
	Source   ByteSource
	Cipher   cipher.Block
	Observer observe.Observer

	state  int32
	blocks uint64
}

// NewPipeline validates conf and creates a Pipeline.
func NewPipeline(conf Config, src ByteSource, block cipher.Block, observer observe.Observer) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("byte source required")
	}
	if block == nil {
		return nil, errors.New("block cipher required")
	}
	conf = conf.withDefaults()
	if conf.BlockSize != block.BlockSize() {
		return nil, fmt.Errorf("block size %d mismatches cipher block size %d", conf.BlockSize, block.BlockSize())
	}
	if conf.ReadBufferSize < conf.BlockSize {
		return nil, fmt.Errorf("read buffer %d smaller than a block", conf.ReadBufferSize)
	}
	if conf.PlaintextLen > conf.BlockSize {
		return nil, fmt.Errorf("plaintext length %d exceeds block size", conf.PlaintextLen)
	}
	if observer == nil {
		observer = observe.Discard
	}
	return &Pipeline{Config: conf, Source: src, Cipher: block, Observer: observer}, nil
}

// State returns the current state.
func (p *Pipeline) State() State {
	return State(atomic.LoadInt32(&p.state))
}

// Blocks returns the number of decrypted blocks.
func (p *Pipeline) Blocks() uint64 {
	return atomic.LoadUint64(&p.blocks)
}

func (p *Pipeline) setState(s State) {
	atomic.StoreInt32(&p.state, int32(s))
}

// Run implements Runnable. A byte source failure stops it with a ReadError.
func (p *Pipeline) Run(ctx context.Context) error {
	conf := p.Config
	buf := make([]byte, conf.ReadBufferSize)
	plain := make([]byte, conf.BlockSize)
	readLen := conf.ReadBufferSize
	if conf.Excess == ExcessRetain {
		readLen = conf.BlockSize
	}
	for {
		p.setState(StateIdle)
		if err := ctx.Err(); err != nil {
			return err
		}
		avail, err := p.Source.Buffered()
		if err != nil {
			return &ReadError{Op: "buffered length", Err: err}
		}
		if avail < conf.BlockSize {
			if err := rtos.Sleep(ctx, conf.PollInterval); err != nil {
				return err
			}
			continue
		}

		p.setState(StateBlockReady)
		n, err := p.Source.Read(buf[:readLen], conf.ReadTimeout)
		if err != nil {
			return &ReadError{Op: "read", Err: err}
		}
		if n < conf.BlockSize {
			p.Observer.Observe(observe.Record{
				Source: p.Name,
				Kind:   observe.KindWarning,
				Value:  int64(n),
				Text:   fmt.Sprintf("short read of %d bytes dropped", n),
			})
			continue
		}

		p.setState(StateDecrypting)
		cipherText := append([]byte(nil), buf[:conf.BlockSize]...)
		p.Observer.Observe(observe.Record{
			Source: p.Name,
			Kind:   observe.KindCiphertext,
			Data:   cipherText,
			Text:   observe.HexDump(cipherText),
		})
		p.Cipher.Decrypt(plain, cipherText)
		atomic.AddUint64(&p.blocks, 1)
		p.Observer.Observe(observe.Record{
			Source: p.Name,
			Kind:   observe.KindPlaintext,
			Text:   Plaintext(plain, conf.PlaintextLen),
		})
	}
}

// Plaintext terminates a decrypted block at n bytes, or at the first
// NUL before that, and returns it as a string.
func Plaintext(block []byte, n int) string {
	if n > len(block) {
		n = len(block)
	}
	s := block[:n]
	if pos := bytes.IndexByte(s, 0); pos >= 0 {
		s = s[:pos]
	}
	return string(s)
}
