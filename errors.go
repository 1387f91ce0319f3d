package mqtt

import (
	"errors"
	"fmt"

	"github.com/srishina/mqtt311/internal/packettype"
)

// Wire level conditions - check with errors.Is().
var (
	// ErrDecodeIncomplete is not a failure: the buffer does not yet hold a
	// complete packet, decode again once more bytes arrived.
	ErrDecodeIncomplete = errors.New("incomplete packet")

	// ErrMalformedPacket is wrapped by every DecodeError.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrProtocolViolation is wrapped by every ProtocolViolationError.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrDisconnected resolves operations that were still in flight when
	// the connection went away. They were not acknowledged and may be
	// retransmitted with Session.Republish.
	ErrDisconnected = errors.New("disconnected before acknowledgement")
)

// Caller misuse - check with errors.Is().
var (
	ErrNotConnected      = errors.New("session is not connected")
	ErrInvalidState      = errors.New("operation not permitted in the current connection state")
	ErrSessionClosed     = errors.New("session closed")
	ErrInvalidQoS        = errors.New("invalid QoS level")
	ErrPacketIDInUse     = errors.New("packet identifier already in use")
	ErrPacketIDExhausted = errors.New("no packet identifier available")
	ErrInvalidClientID   = errors.New("empty client identifier requires a clean session")
)

// DecodeError reports bytes that can not form a valid packet. The
// connection must be closed.
type DecodeError struct {
	Type packettype.PacketType
	Err  error
}

func newDecodeError(pt packettype.PacketType, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Type: pt, Err: fmt.Errorf(format, args...)}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed %s packet: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformedPacket, e.Err}
}

// ConnectionRefusedError the broker rejected the CONNECT
type ConnectionRefusedError struct {
	Code ConnAckReturnCode
}

func (e *ConnectionRefusedError) Error() string {
	return fmt.Sprintf("connection refused: %s (0x%02x)", e.Code.Text(), byte(e.Code))
}

// ProtocolViolationError an inbound packet does not fit the session
// state, for example an acknowledgement for an unknown identifier.
type ProtocolViolationError struct {
	Type     packettype.PacketType
	PacketID uint16
	Reason   string
}

func (e *ProtocolViolationError) Error() string {
	if e.PacketID != 0 {
		return fmt.Sprintf("protocol violation: %s(%d) %s", e.Type, e.PacketID, e.Reason)
	}
	return fmt.Sprintf("protocol violation: %s %s", e.Type, e.Reason)
}

func (e *ProtocolViolationError) Unwrap() error { return ErrProtocolViolation }
