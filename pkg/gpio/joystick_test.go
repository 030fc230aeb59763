package gpio

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/require"
)

func jsStream(t *testing.T, events ...jsEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, ev := range events {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, &ev))
	}
	return ioutil.NopCloser(&buf)
}

func TestJoystickButton(t *testing.T) {
	stream := jsStream(t,
		jsEvent{Type: jsEventButton | jsEventInit, Number: 0, Value: 1},
		jsEvent{Type: jsEventButton, Number: 0, Value: 0},
		jsEvent{Type: jsEventButton, Number: 0, Value: 1},
		jsEvent{Type: jsEventButton, Number: 1, Value: 0},
		jsEvent{Type: jsEventButton, Number: 1, Value: 1},
		jsEvent{Type: 0x02, Number: 0, Value: 0},
		jsEvent{Type: jsEventButton, Number: 0, Value: 0},
		jsEvent{Type: jsEventButton, Number: 0, Value: 1},
	)
	j, err := newJoystickButton(stream, 0, 0, DefaultConfig)
	require.NoError(t, err)
	var edges int
	require.NoError(t, j.OnEdge(func() { edges++ }))

	err = j.Run(context.Background())
	require.Equal(t, io.EOF, err)
	require.Equal(t, 2, edges)
	require.False(t, j.Pin().Level())
}
