package serial

import (
	"golang.org/x/net/websocket"
)

// DialWebSocket connects to a serial-over-websocket bridge and returns
// the connection as a Port. Binary and text frames are both treated as
// raw bytes.
func DialWebSocket(url, origin string) (*Port, error) {
	if origin == "" {
		origin = "http://localhost/"
	}
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	p := NewPort(conn)
	p.Name = url
	return p, nil
}
