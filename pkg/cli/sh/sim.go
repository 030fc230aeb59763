package sh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/rtloop/pkg/decrypt"
	"github.com/robotalks/rtloop/pkg/edge"
	"github.com/robotalks/rtloop/pkg/env"
	fx "github.com/robotalks/rtloop/pkg/framework"
	"github.com/robotalks/rtloop/pkg/gpio"
	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/serial"
	"github.com/robotalks/rtloop/pkg/system"
)

// Sim is a System running in-process with a simulated push button
// and serial port.
type Sim struct {
	System *system.System
	Pin    *gpio.SimPin
	Port   *serial.Port
	Latest *observe.Latest

	runner *fx.Runner
	cancel func()
}

// Status is a snapshot of a running Sim.
type Status struct {
	Tasks       []string `json:"tasks"`
	Failed      []string `json:"failed,omitempty"`
	Counter     int32    `json:"counter"`
	Edges       uint32   `json:"pendingEdges"`
	Wakes       uint32   `json:"wakes"`
	Drains      uint32   `json:"drains"`
	Spurious    uint32   `json:"spurious"`
	EdgeWorker  string   `json:"edgeWorker"`
	Pipeline    string   `json:"pipeline,omitempty"`
	Blocks      uint64   `json:"blocks"`
	Overruns    uint64   `json:"overruns"`
	Buffered    int      `json:"buffered"`
	Decrypted   string   `json:"lastPlaintext,omitempty"`
	Ciphertexts int      `json:"ciphertexts"`
}

// NewSim creates a Sim from conf. Without a provisioned key a random
// session key is used.
func NewSim(conf *env.Config, observers ...observe.Observer) (*Sim, error) {
	c := *conf
	c.Button = env.ButtonSim
	c.Serial = ""

	s := &Sim{Latest: &observe.Latest{}}
	opts, err := c.Options(append([]observe.Observer{s.Latest}, observers...)...)
	if err != nil {
		return nil, err
	}
	key, err := c.LoadKey()
	if err == env.ErrNoKey {
		key = make([]byte, decrypt.KeySize)
		if _, err = rand.Read(key); err != nil {
			return nil, err
		}
		glog.Warning("no key provisioned, using a random session key")
	}
	if err != nil {
		return nil, err
	}
	if opts.Cipher, err = decrypt.NewAESCipher(key); err != nil {
		return nil, err
	}
	s.Port = serial.NewPort(nil)
	s.Port.Name = "sim"
	opts.ByteSource = s.Port

	if s.System, err = system.New(opts); err != nil {
		return nil, err
	}
	s.Pin = opts.EdgeSource.(*gpio.SimPin)
	return s, nil
}

// Start starts all tasks.
func (s *Sim) Start(ctx context.Context) *fx.Runner {
	ctx, s.cancel = context.WithCancel(ctx)
	s.runner = s.System.Start(ctx)
	return s.runner
}

// Stop cancels all tasks and waits for them.
func (s *Sim) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.System.Wait()
}

// Press holds the button down.
func (s *Sim) Press() {
	s.Pin.Press()
}

// Release releases the button.
func (s *Sim) Release() {
	s.Pin.Release()
}

// Pulse presses and releases the button n times.
func (s *Sim) Pulse(n int) {
	s.Pin.Pulse(n)
}

// Send feeds raw bytes, in hex, to the serial port. Bytes may be
// formatted like ciphertext records, e.g. "0x1f 0x2e".
func (s *Sim) Send(hexData string) (int, error) {
	fields := strings.Fields(hexData)
	for n, f := range fields {
		fields[n] = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
	}
	data, err := hex.DecodeString(strings.Join(fields, ""))
	if err != nil {
		return 0, fmt.Errorf("invalid hex: %v", err)
	}
	s.Port.Feed(data)
	return len(data), nil
}

// Encrypt encrypts text with the session key and feeds the block to the
// serial port.
func (s *Sim) Encrypt(text string) ([]byte, error) {
	block, err := decrypt.EncryptBlock(s.System.Options.Cipher, []byte(text))
	if err != nil {
		return nil, err
	}
	s.Port.Feed(block)
	return block, nil
}

// Status takes a snapshot.
func (s *Sim) Status() Status {
	sys := s.System
	st := Status{
		Counter:     sys.Counter.Load(),
		Edges:       sys.Edges.Load(),
		Wakes:       sys.Bridge.Wakes(),
		EdgeWorker:  edge.StateWaiting.String(),
		Overruns:    s.Port.Overruns(),
		Ciphertexts: s.Latest.Count(observe.KindCiphertext),
	}
	st.Buffered, _ = s.Port.Buffered()
	if s.runner != nil {
		st.Tasks, st.Failed = s.runner.Tasks(), s.runner.Failed()
	}
	if w := sys.EdgeWorker; w != nil {
		st.EdgeWorker = w.State().String()
		st.Drains, st.Spurious = w.Drains(), w.Spurious()
	}
	if p := sys.Pipeline; p != nil {
		st.Pipeline = p.State().String()
		st.Blocks = p.Blocks()
	}
	if r, ok := s.Latest.Get(system.TaskPipeline, observe.KindPlaintext); ok {
		st.Decrypted = r.Text
	}
	return st
}
