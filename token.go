package mqtt

import (
	"context"
	"sync"
)

// token completion handle of an asynchronous operation
type token struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newToken() token {
	return token{done: make(chan struct{})}
}

func (t *token) complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Done is closed once the operation has completed
func (t *token) Done() <-chan struct{} {
	return t.done
}

// Err the outcome of the operation, nil while it is still pending
func (t *token) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the operation completes or ctx is done
func (t *token) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectToken completes when the CONNACK arrives. A refused connection
// completes with a *ConnectionRefusedError.
type ConnectToken struct {
	token
	connack *ConnAck
}

func newConnectToken() *ConnectToken {
	return &ConnectToken{token: newToken()}
}

// ConnAck the broker response, nil until completion or when the
// connection was lost before it arrived
func (t *ConnectToken) ConnAck() *ConnAck {
	select {
	case <-t.done:
		return t.connack
	default:
		return nil
	}
}

// PublishToken completes when a PUBLISH reached its terminal state: written
// for QoS 0, PUBACK for QoS 1 and PUBCOMP for QoS 2. A publish still in
// flight when the connection closes completes with ErrDisconnected.
type PublishToken struct {
	token
	publish *Publish
	acked   bool
}

func newPublishToken(p *Publish) *PublishToken {
	return &PublishToken{token: newToken(), publish: p}
}

// Message a copy of the publish as it was sent, including the assigned
// packet identifier. Pass it to Session.Republish after a reconnect when
// the token completed with ErrDisconnected.
func (t *PublishToken) Message() *Publish {
	return t.publish.clone()
}

// PacketID identifier assigned to the publish, 0 for QoS 0
func (t *PublishToken) PacketID() uint16 {
	return t.publish.PacketID
}

// Acknowledged true when the publish completed its QoS flow
func (t *PublishToken) Acknowledged() bool {
	select {
	case <-t.done:
		return t.acked
	default:
		return false
	}
}

// SubscribeToken completes when the SUBACK arrives
type SubscribeToken struct {
	token
	suback *SubAck
}

func newSubscribeToken() *SubscribeToken {
	return &SubscribeToken{token: newToken()}
}

// SubAck the broker response, nil until completion
func (t *SubscribeToken) SubAck() *SubAck {
	select {
	case <-t.done:
		return t.suback
	default:
		return nil
	}
}
