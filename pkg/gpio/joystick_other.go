// +build !linux

package gpio

import "errors"

// OpenJoystickButton is only supported on linux.
func OpenJoystickButton(index, button int, conf Config) (*JoystickButton, error) {
	return nil, errors.New("joystick input not supported on this platform")
}
