// +build linux

package gpio

import (
	"bytes"
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

const jsIocGName uint = 0x80ff6a13

// OpenJoystickButton opens /dev/input/js<index> and uses button as the input.
func OpenJoystickButton(index, button int, conf Config) (*JoystickButton, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/input/js%d", index), os.O_RDONLY, 0666)
	if err != nil {
		return nil, err
	}
	j, err := newJoystickButton(f, index, button, conf)
	if err != nil {
		f.Close()
		return nil, err
	}
	var buf [256]byte
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uintptr(jsIocGName), uintptr(unsafe.Pointer(&buf)))
	if errno == 0 {
		if pos := bytes.IndexByte(buf[:], 0); pos >= 0 {
			j.Name = string(buf[:pos])
		} else {
			j.Name = string(buf[:])
		}
	}
	return j, nil
}
