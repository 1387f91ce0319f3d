package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
)

// Connection dials the byte stream a Session runs over. WebsocketConn and
// TCPConn are provided as part of the library, other transports can be
// written by implementations.
type Connection interface {
	BrokerURL() string
	// Connect establishes the network connection
	Connect(ctx context.Context) (io.ReadWriteCloser, error)
	// Close closes the network connection
	Close()
}

// NewConnection returns the Connection for a broker URL. Supported schemes
// are tcp and mqtt, ssl, tls and mqtts, ws and wss.
func NewConnection(brokerURL string, tlsConfig *tls.Config) (Connection, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "tcp", "mqtt":
		return &TCPConn{Host: u.Host}, nil
	case "ssl", "tls", "mqtts":
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		return &TCPConn{Host: u.Host, TLSConfig: tlsConfig}, nil
	case "ws", "wss":
		return &WebsocketConn{Host: brokerURL, TLSConfig: tlsConfig}, nil
	}
	return nil, fmt.Errorf("unsupported broker URL scheme %q", u.Scheme)
}
