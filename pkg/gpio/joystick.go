package gpio

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/rtloop/pkg/framework"
)

const (
	jsEventInit   uint8 = 0x80
	jsEventButton uint8 = 0x01
)

type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// JoystickButton uses a joystick button as a push button input.
// Pressing the button drives the input to its active level.
type JoystickButton struct {
	Index  int
	Button int
	Name   string

	pin    *SimPin
	device io.ReadCloser
}

func newJoystickButton(device io.ReadCloser, index, button int, conf Config) (*JoystickButton, error) {
	pin, err := NewSimPin(conf)
	if err != nil {
		return nil, err
	}
	return &JoystickButton{Index: index, Button: button, pin: pin, device: device}, nil
}

// OnEdge implements EdgeSource.
func (j *JoystickButton) OnEdge(h EdgeHandler) error {
	return j.pin.OnEdge(h)
}

// Pin returns the underlying input.
func (j *JoystickButton) Pin() *SimPin {
	return j.pin
}

// Run reads button events until the device fails or ctx is canceled.
func (j *JoystickButton) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, j.device, func() error {
		for {
			var ev jsEvent
			if err := binary.Read(j.device, binary.LittleEndian, &ev); err != nil {
				return err
			}
			j.handleEvent(ev)
		}
	})
}

func (j *JoystickButton) handleEvent(ev jsEvent) {
	if ev.Type&jsEventButton == 0 || int(ev.Number) != j.Button {
		return
	}
	pressed := ev.Value != 0
	level := j.pin.Config.PullUp
	if pressed {
		level = !level
	}
	if ev.Type&jsEventInit != 0 {
		glog.V(2).Infof("joystick %d button %d initial state pressed=%v", j.Index, j.Button, pressed)
		j.pin.reset(level)
		return
	}
	j.pin.Set(level)
}
