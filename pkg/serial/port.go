// Package serial provides byte sources for the decryption pipeline.
package serial

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/rtloop/pkg/framework"
	"github.com/robotalks/rtloop/pkg/rtos"
)

// DefaultRxBufferSize is the receive buffer size (2x the read buffer).
const DefaultRxBufferSize = 512

const readChunk = 64

// Port buffers bytes from a stream so the consumer can poll the buffered
// length, similar to a UART driver with an RX ring buffer. Run must be
// running for bytes to arrive.
type Port struct {
	Name         string
	RxBufferSize int

	stream   io.Reader
	lock     sync.Mutex
	buf      []byte
	err      error
	rxNotify *rtos.Notification
	overruns uint64
}

// NewPort wraps a stream.
func NewPort(stream io.Reader) *Port {
	return &Port{
		RxBufferSize: DefaultRxBufferSize,
		stream:       stream,
		rxNotify:     rtos.NewNotification(),
	}
}

// Open opens a device or file as a Port, "-" means stdin.
func Open(path string) (*Port, error) {
	if path == "-" {
		p := NewPort(os.Stdin)
		p.Name = "stdin"
		return p, nil
	}
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	p := NewPort(f)
	p.Name = path
	return p, nil
}

// Buffered returns the number of bytes ready to read. A stream error
// is reported once all bytes received before it are consumed.
func (p *Port) Buffered() (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.buf) == 0 && p.err != nil {
		return 0, p.err
	}
	return len(p.buf), nil
}

// Read reads up to len(b) bytes, waiting at most timeout for len(b)
// bytes to arrive. It returns what is buffered when timeout expires.
func (p *Port) Read(b []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		p.lock.Lock()
		if len(p.buf) >= len(b) || p.err != nil {
			break
		}
		p.lock.Unlock()
		wait := time.Until(deadline)
		if wait <= 0 {
			p.lock.Lock()
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), wait)
		p.rxNotify.Take(ctx)
		cancel()
	}
	defer p.lock.Unlock()
	if len(p.buf) == 0 && p.err != nil {
		return 0, p.err
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Overruns returns the number of bytes dropped because the RX buffer was full.
func (p *Port) Overruns() uint64 {
	return atomic.LoadUint64(&p.overruns)
}

// Feed appends bytes to the RX buffer as if they were received.
func (p *Port) Feed(data []byte) {
	p.lock.Lock()
	room := p.RxBufferSize - len(p.buf)
	if room < 0 {
		room = 0
	}
	if len(data) > room {
		atomic.AddUint64(&p.overruns, uint64(len(data)-room))
		glog.V(2).Infof("serial %s: RX overrun, %d bytes dropped", p.Name, len(data)-room)
		data = data[:room]
	}
	p.buf = append(p.buf, data...)
	p.lock.Unlock()
	p.rxNotify.Give()
}

// Run receives bytes from the stream until it fails or ctx is canceled.
func (p *Port) Run(ctx context.Context) error {
	err := p.runStream(ctx)
	if err == nil {
		err = io.EOF
	}
	p.lock.Lock()
	if p.err == nil {
		p.err = err
	}
	p.lock.Unlock()
	p.rxNotify.Give()
	if err == io.EOF {
		glog.V(2).Infof("serial %s: end of stream", p.Name)
		return nil
	}
	return err
}

func (p *Port) runStream(ctx context.Context) error {
	if closer, ok := p.stream.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, p.readLoop)
	}
	return fx.RunWithContextCancel(ctx, nil, p.readLoop)
}

func (p *Port) readLoop() error {
	buf := make([]byte, readChunk)
	for {
		n, err := p.stream.Read(buf)
		if n > 0 {
			p.Feed(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}
