package mqttutil

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// websocketRW turns the message oriented websocket connection into
// a byte stream. MQTT packets may span or share binary messages.
type websocketRW struct {
	conn    *websocket.Conn
	r       io.Reader
	writeMu sync.Mutex
}

// NewWebsocketReadWriter wraps c as an ordered byte stream
func NewWebsocketReadWriter(c *websocket.Conn) io.ReadWriteCloser {
	return &websocketRW{conn: c}
}

func (wsc *websocketRW) Read(p []byte) (int, error) {
	for {
		if wsc.r == nil {
			mt, r, err := wsc.conn.NextReader()
			if err != nil {
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			wsc.r = r
		}
		n, err := wsc.r.Read(p)
		if err == io.EOF {
			wsc.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (wsc *websocketRW) Write(p []byte) (int, error) {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	if err := wsc.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Close sends a close frame and closes the underlying connection
func (wsc *websocketRW) Close() error {
	wsc.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = wsc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	wsc.writeMu.Unlock()
	return wsc.conn.Close()
}
