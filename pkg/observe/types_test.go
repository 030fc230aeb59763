package observe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordString(t *testing.T) {
	testCases := []struct {
		record Record
		expect string
	}{
		{Record{Kind: KindCounter, Source: "task_1", Text: "Incremented", Value: 3}, "Incremented (task_1): Counter = 3"},
		{Record{Kind: KindEdge, Value: 2}, "Missed 2 flanks since last isr handling call."},
		{Record{Kind: KindCiphertext, Text: HexDump([]byte{0x01, 0xab})}, "Encrypted Data Received: 0x01 0xab"},
		{Record{Kind: KindPlaintext, Text: "HelloWorld"}, "Decrypted String: HelloWorld"},
		{Record{Kind: KindTask, Source: "main", Text: "Starting main app."}, "main: Starting main app."},
		{Record{Kind: KindWarning, Text: "short read"}, "short read"},
	}
	for _, tc := range testCases {
		t.Run(string(tc.record.Kind), func(t *testing.T) {
			require.Equal(t, tc.expect, tc.record.String())
		})
	}
}

func TestMuxAndLatest(t *testing.T) {
	var latest Latest
	var seen []Record
	var mux Mux
	mux.Add(&latest, nil, ObserveFunc(func(r Record) { seen = append(seen, r) }))
	require.Len(t, mux.Observers, 2)

	mux.Observe(Record{Source: "task_1", Kind: KindCounter, Value: 1})
	mux.Observe(Record{Source: "task_1", Kind: KindCounter, Value: 2})
	mux.Observe(Record{Source: "task_2", Kind: KindCounter, Value: 1})

	require.Len(t, seen, 3)
	require.False(t, seen[0].Time.IsZero())
	r, ok := latest.Get("task_1", KindCounter)
	require.True(t, ok)
	require.EqualValues(t, 2, r.Value)
	_, ok = latest.Get("task_3", KindCounter)
	require.False(t, ok)
	require.Equal(t, 3, latest.Count(KindCounter))
	require.Equal(t, 0, latest.Count(KindEdge))
}
