// +build windows

package gpio

import (
	"context"
	"errors"
)

// SignalButton is unsupported on this platform.
type SignalButton struct {
	*SimPin
}

// NewSignalButton reports SIGUSR1 is unavailable.
func NewSignalButton(conf Config) (*SignalButton, error) {
	return nil, errors.New("signal button not supported on this platform")
}

// Run implements Runnable.
func (b *SignalButton) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
