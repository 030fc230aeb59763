// +build !windows

package gpio

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalButton pulses a SimPin on each SIGUSR1, a stand-in push button
// for hosts without input hardware.
type SignalButton struct {
	*SimPin
}

// NewSignalButton creates a SignalButton.
func NewSignalButton(conf Config) (*SignalButton, error) {
	pin, err := NewSimPin(conf)
	if err != nil {
		return nil, err
	}
	return &SignalButton{SimPin: pin}, nil
}

// Run pulses the pin on SIGUSR1 until ctx is canceled.
func (b *SignalButton) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	defer signal.Stop(sigCh)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigCh:
			b.Pulse(1)
		}
	}
}
