package sh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtloop/pkg/env"
	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/system"
)

func newTestSim(t *testing.T) (*Sim, chan observe.Record) {
	conf := env.NewConfig()
	conf.Key, conf.KeyFile, conf.MQTTBrokerURL = "", "", ""
	conf.RaceWindow, conf.Period = time.Millisecond, time.Millisecond
	recordCh := make(chan observe.Record, 1024)
	sim, err := NewSim(conf, observe.ObserveFunc(func(r observe.Record) {
		select {
		case recordCh <- r:
		default:
		}
	}))
	require.NoError(t, err)
	sim.Start(context.Background())
	t.Cleanup(func() { require.NoError(t, sim.Stop()) })
	return sim, recordCh
}

func waitRecord(t *testing.T, recordCh chan observe.Record, kind observe.Kind) observe.Record {
	timeout := time.After(time.Second)
	for {
		select {
		case r := <-recordCh:
			if r.Kind == kind {
				return r
			}
		case <-timeout:
			t.Fatalf("expect %s record timeout", kind)
		}
	}
}

func TestSimEncryptDecrypts(t *testing.T) {
	sim, recordCh := newTestSim(t)
	block, err := sim.Encrypt("HelloWorld")
	require.NoError(t, err)
	require.Len(t, block, 16)
	require.Equal(t, "HelloWorld", waitRecord(t, recordCh, observe.KindPlaintext).Text)

	st := sim.Status()
	require.Equal(t, []string{system.TaskIncrementer, system.TaskDecrementer, system.TaskEdgeWorker, system.TaskPipeline}, st.Tasks)
	require.EqualValues(t, 1, st.Blocks)
	require.Equal(t, "HelloWorld", st.Decrypted)
	require.Equal(t, 1, st.Ciphertexts)

	_, err = sim.Encrypt("a plaintext longer than a block")
	require.Error(t, err)
}

func TestSimSend(t *testing.T) {
	sim, recordCh := newTestSim(t)
	block, err := sim.Encrypt("abc")
	require.NoError(t, err)
	waitRecord(t, recordCh, observe.KindPlaintext)

	n, err := sim.Send(observe.HexDump(block))
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, "abc", waitRecord(t, recordCh, observe.KindPlaintext).Text)

	_, err = sim.Send("zz")
	require.Error(t, err)
}

func TestSimPress(t *testing.T) {
	sim, recordCh := newTestSim(t)
	sim.Press()
	r := waitRecord(t, recordCh, observe.KindEdge)
	require.Equal(t, system.TaskEdgeWorker, r.Source)
	sim.Release()
	sim.Pulse(2)
	waitRecord(t, recordCh, observe.KindEdge)
	require.NotZero(t, sim.Status().Wakes)
}

func TestSplitCommands(t *testing.T) {
	testCases := []struct {
		args   []string
		expect [][]string
	}{
		{nil, nil},
		{[]string{"status"}, [][]string{{"status"}}},
		{[]string{"press", "3", ";", "edges"}, [][]string{{"press", "3"}, {"edges"}}},
		{[]string{"press;", "sleep", "1s;status"}, [][]string{{"press"}, {"sleep", "1s"}, {"status"}}},
		{[]string{";", "counter", ";"}, [][]string{{"counter"}}},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expect, SplitCommands(tc.args))
	}
}
