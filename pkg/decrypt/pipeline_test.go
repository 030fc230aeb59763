package decrypt

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtloop/pkg/observe"
)

var testKey = []byte("1234567890abcdef")

type memSource struct {
	lock      sync.Mutex
	data      []byte
	reads     int
	shortRead int
	readErr   error
	bufErr    error
}

func (s *memSource) feed(p []byte) {
	s.lock.Lock()
	s.data = append(s.data, p...)
	s.lock.Unlock()
}

func (s *memSource) Buffered() (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.bufErr != nil {
		return 0, s.bufErr
	}
	return len(s.data), nil
}

func (s *memSource) Read(p []byte, timeout time.Duration) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.reads++
	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.shortRead > 0 && len(p) > s.shortRead {
		p = p[:s.shortRead]
	}
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n, nil
}

func (s *memSource) readCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.reads
}

type pipelineTestEnv struct {
	t        *testing.T
	src      *memSource
	pipeline *Pipeline
	recordCh chan observe.Record
	errCh    chan error
	cancel   func()
}

func newPipelineTestEnv(t *testing.T, conf Config) *pipelineTestEnv {
	block, err := NewAESCipher(testKey)
	require.NoError(t, err)
	env := &pipelineTestEnv{
		t:        t,
		src:      &memSource{},
		recordCh: make(chan observe.Record, 16),
		errCh:    make(chan error, 1),
	}
	conf.PollInterval = time.Millisecond
	env.pipeline, err = NewPipeline(conf, env.src, block, observe.ObserveFunc(func(r observe.Record) {
		env.recordCh <- r
	}))
	require.NoError(t, err)
	return env
}

func (e *pipelineTestEnv) start() *pipelineTestEnv {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go func() { e.errCh <- e.pipeline.Run(ctx) }()
	return e
}

func (e *pipelineTestEnv) stop() {
	e.cancel()
	<-e.errCh
}

func (e *pipelineTestEnv) encrypt(plaintext string) []byte {
	block, err := NewAESCipher(testKey)
	require.NoError(e.t, err)
	c, err := EncryptBlock(block, []byte(plaintext))
	require.NoError(e.t, err)
	return c
}

func (e *pipelineTestEnv) nextRecord() observe.Record {
	select {
	case r := <-e.recordCh:
		return r
	case <-time.After(time.Second):
		e.t.Fatal("expect record timeout")
	}
	return observe.Record{}
}

func (e *pipelineTestEnv) expectBlock(cipherText []byte, plaintext string) {
	r := e.nextRecord()
	require.Equal(e.t, observe.KindCiphertext, r.Kind)
	require.Equal(e.t, cipherText, r.Data)
	require.Equal(e.t, observe.HexDump(cipherText), r.Text)
	r = e.nextRecord()
	require.Equal(e.t, observe.KindPlaintext, r.Kind)
	require.Equal(e.t, plaintext, r.Text)
}

func (e *pipelineTestEnv) expectNoRecord() {
	select {
	case r := <-e.recordCh:
		e.t.Fatalf("unexpected record %v", r)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestPipelineHelloWorld(t *testing.T) {
	env := newPipelineTestEnv(t, DefaultConfig).start()
	defer env.stop()
	c := env.encrypt("HelloWorld")
	require.Len(t, c, 16)
	env.src.feed(c)
	env.expectBlock(c, "HelloWorld")
	require.EqualValues(t, 1, env.pipeline.Blocks())
}

func TestPipelineTruncatesPlaintext(t *testing.T) {
	env := newPipelineTestEnv(t, DefaultConfig).start()
	defer env.stop()
	c := env.encrypt("ABCDEFGHIJKLMNOP")
	env.src.feed(c)
	env.expectBlock(c, "ABCDEFGHIJ")
}

func TestPipelineBlockBoundary(t *testing.T) {
	env := newPipelineTestEnv(t, DefaultConfig).start()
	defer env.stop()
	c := env.encrypt("boundary")

	env.src.feed(c[:15])
	env.expectNoRecord()
	require.Zero(t, env.src.readCount(), "no read below one block")
	require.Zero(t, env.pipeline.Blocks())

	env.src.feed(c[15:])
	env.expectBlock(c, "boundary")
	env.expectNoRecord()
	require.Equal(t, 1, env.src.readCount())
	require.EqualValues(t, 1, env.pipeline.Blocks())
}

func TestPipelineExcessDiscard(t *testing.T) {
	env := newPipelineTestEnv(t, DefaultConfig).start()
	defer env.stop()
	c1, c2 := env.encrypt("first"), env.encrypt("second")
	env.src.feed(append(append([]byte(nil), c1...), c2[:8]...))
	env.expectBlock(c1, "first")
	env.src.feed(c2[8:])
	env.expectNoRecord()
	n, err := env.src.Buffered()
	require.NoError(t, err)
	require.Equal(t, 8, n)
}

func TestPipelineExcessRetain(t *testing.T) {
	conf := DefaultConfig
	conf.Excess = ExcessRetain
	env := newPipelineTestEnv(t, conf).start()
	defer env.stop()
	c1, c2 := env.encrypt("first"), env.encrypt("second")
	env.src.feed(append(append([]byte(nil), c1...), c2[:8]...))
	env.expectBlock(c1, "first")
	env.expectNoRecord()
	env.src.feed(c2[8:])
	env.expectBlock(c2, "second")
}

func TestPipelineShortRead(t *testing.T) {
	env := newPipelineTestEnv(t, DefaultConfig)
	env.src.shortRead = 8
	env.start()
	defer env.stop()
	env.src.feed(env.encrypt("short"))
	r := env.nextRecord()
	require.Equal(t, observe.KindWarning, r.Kind)
	require.EqualValues(t, 8, r.Value)
}

func TestPipelineSourceErrorsAreFatal(t *testing.T) {
	failure := errors.New("uart fault")
	testCases := []struct {
		name  string
		setup func(*memSource)
		op    string
	}{
		{"read", func(s *memSource) { s.data, s.readErr = make([]byte, 16), failure }, "read"},
		{"buffered", func(s *memSource) { s.bufErr = failure }, "buffered length"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newPipelineTestEnv(t, DefaultConfig)
			tc.setup(env.src)
			err := env.pipeline.Run(context.Background())
			require.True(t, errors.Is(err, failure))
			var readErr *ReadError
			require.True(t, errors.As(err, &readErr))
			require.Equal(t, tc.op, readErr.Op)
			require.Zero(t, env.pipeline.Blocks())
		})
	}
}

func TestNewPipelineValidates(t *testing.T) {
	block, err := NewAESCipher(testKey)
	require.NoError(t, err)
	src := &memSource{}
	_, err = NewPipeline(DefaultConfig, nil, block, nil)
	require.Error(t, err)
	_, err = NewPipeline(DefaultConfig, src, nil, nil)
	require.Error(t, err)
	_, err = NewPipeline(Config{BlockSize: 8}, src, block, nil)
	require.Error(t, err)
	_, err = NewPipeline(Config{ReadBufferSize: 8}, src, block, nil)
	require.Error(t, err)
	_, err = NewPipeline(Config{PlaintextLen: 17}, src, block, nil)
	require.Error(t, err)
	p, err := NewPipeline(Config{}, src, block, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig, p.Config)
	require.Equal(t, StateIdle, p.State())
	require.Equal(t, "Idle", p.State().String())
}

func TestAESCipher(t *testing.T) {
	_, err := NewAESCipher([]byte("short"))
	require.Equal(t, ErrKeySize, err)
	_, err = NewAESCipher(make([]byte, 32))
	require.Equal(t, ErrKeySize, err)

	// FIPS-197 C.1
	key, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	plain, _ := hex.DecodeString("00112233445566778899aabbccddeeff")
	expect, _ := hex.DecodeString("69c4e0d86a7b0430d8cdb78070b4c55a")
	block, err := NewAESCipher(key)
	require.NoError(t, err)
	c, err := EncryptBlock(block, plain)
	require.NoError(t, err)
	require.Equal(t, expect, c)
	out := make([]byte, 16)
	block.Decrypt(out, c)
	require.Equal(t, plain, out)

	_, err = EncryptBlock(block, make([]byte, 17))
	require.Equal(t, ErrBlockTooLong, err)
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey([]byte("1234567890abcdef\n"))
	require.NoError(t, err)
	require.Equal(t, testKey, key)
	key, err = ParseKey([]byte("31323334353637383930616263646566"))
	require.NoError(t, err)
	require.Equal(t, testKey, key)
	_, err = ParseKey([]byte("zz323334353637383930616263646566"))
	require.Error(t, err)
	_, err = ParseKey([]byte("abc"))
	require.Equal(t, ErrKeySize, err)
	key, err = ParseKey([]byte(" 31323334353637383930616263646566\r\n"))
	require.NoError(t, err)
	require.Equal(t, testKey, key)
}

func TestParseKeyRawBinary(t *testing.T) {
	leadingSpace := []byte{0x20, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	testCases := []struct {
		name   string
		data   []byte
		expect []byte
	}{
		{"trailing newline byte", []byte("1234567890abcde\n"), []byte("1234567890abcde\n")},
		{"leading space byte", leadingSpace, leadingSpace},
		{"tab bytes", []byte("\t234567890abcde\t"), []byte("\t234567890abcde\t")},
		{"line ending after key", append(append([]byte(nil), leadingSpace...), '\n'), leadingSpace},
		{"crlf after key", append(append([]byte(nil), leadingSpace...), '\r', '\n'), leadingSpace},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := ParseKey(tc.data)
			require.NoError(t, err)
			require.Equal(t, tc.expect, key)
			_, err = NewAESCipher(key)
			require.NoError(t, err)
		})
	}
}

func TestPlaintext(t *testing.T) {
	require.Equal(t, "HelloWorld", Plaintext([]byte("HelloWorld\x00\x00\x00\x00\x00\x00"), 10))
	require.Equal(t, "Hi", Plaintext([]byte("Hi\x00there"), 10))
	require.Equal(t, "abc", Plaintext([]byte("abc"), 10))
	require.Equal(t, "0123456789", Plaintext([]byte("0123456789ABCDEF"), 10))
}
