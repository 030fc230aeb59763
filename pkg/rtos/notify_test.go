package rtos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotificationCoalesces(t *testing.T) {
	n := NewNotification()
	require.False(t, n.Pending())
	require.True(t, n.Give())
	require.False(t, n.Give())
	require.False(t, n.Give())
	require.True(t, n.Pending())

	require.NoError(t, n.Take(context.Background()))
	require.False(t, n.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, n.Take(ctx))
}

func TestNotificationGiveBeforeTake(t *testing.T) {
	n := NewNotification()
	n.Give()
	done := make(chan error, 1)
	go func() { done <- n.Take(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wake posted before Take was lost")
	}
}

func TestNotificationWakesWaiter(t *testing.T) {
	n := NewNotification()
	done := make(chan error, 1)
	go func() { done <- n.Take(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	require.True(t, n.Give())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter not woken")
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 15*time.Millisecond))
	require.True(t, time.Since(start) >= 15*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, Sleep(ctx, time.Hour))
	require.Equal(t, context.Canceled, Sleep(ctx, 0))
	require.NoError(t, Sleep(context.Background(), 0))
}
