package mqtt

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/srishina/mqtt311/internal/mqttutil"
)

const defaultHandshakeTimeout = 10 * time.Second

// WebsocketConn dials the broker over a WebSocket. The URL is the full
// ws:// or wss:// endpoint, for example ws://broker:80/mqtt.
type WebsocketConn struct {
	Host             string
	TLSConfig        *tls.Config
	HandshakeTimeout time.Duration
	rw               io.ReadWriteCloser
}

// BrokerURL the broker URL
func (w *WebsocketConn) BrokerURL() string {
	return w.Host
}

// Connect performs the handshake with the "mqtt" subprotocol and returns
// the connection as a byte stream
func (w *WebsocketConn) Connect(ctx context.Context) (io.ReadWriteCloser, error) {
	timeout := w.HandshakeTimeout
	if timeout == 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		TLSClientConfig:  w.TLSConfig,
		Subprotocols:     []string{"mqtt"},
	}
	ws, resp, err := dialer.DialContext(ctx, w.Host, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	w.rw = mqttutil.NewWebsocketReadWriter(ws)
	return w.rw, nil
}

// Close closes the connection
func (w *WebsocketConn) Close() {
	if w.rw != nil {
		w.rw.Close()
		w.rw = nil
	}
}
