package mqtt

import (
	"bytes"
	"errors"
	"io"

	"github.com/srishina/mqtt311/internal/mqttutil"
	"github.com/srishina/mqtt311/internal/packettype"
)

// PacketType MQTT control packet type
type PacketType = packettype.PacketType

// Packet MQTT control packet. The concrete types are *Connect,
// *ConnAck, *Publish, *PubAck, *PubRec, *PubRel, *PubComp,
// *Subscribe, *SubAck, *PingReq, *PingResp and *Disconnect.
type Packet interface {
	Type() PacketType
	encode(w io.Writer) error
	decode(r io.Reader, remainingLen uint32) error
}

// PROTOCOLLEVEL MQTT 3.1.1 protocol level
const PROTOCOLLEVEL = byte(0x04)

// Encode returns the wire representation of p
func Encode(p Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes the packet at the start of buf. It never blocks: when buf
// holds only part of a packet ErrDecodeIncomplete is returned and nothing is
// consumed. On success the packet and the number of bytes it occupied are
// returned. Any other error is a *DecodeError.
func Decode(buf []byte) (Packet, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrDecodeIncomplete
	}

	p, err := newPacketWithHeader(buf[0])
	if err != nil {
		return nil, 0, err
	}

	remainingLength, n, err := mqttutil.VarUint32FromBytes(buf[1:])
	if errors.Is(err, mqttutil.ErrVarUint32Incomplete) {
		return nil, 0, ErrDecodeIncomplete
	}
	if err != nil {
		return nil, 0, &DecodeError{Type: p.Type(), Err: err}
	}

	if err := validateRemainingLength(p.Type(), remainingLength); err != nil {
		return nil, 0, err
	}

	total := 1 + n + int(remainingLength)
	if len(buf) < total {
		return nil, 0, ErrDecodeIncomplete
	}

	if err := decodeBody(p, buf[1+n:total], remainingLength); err != nil {
		return nil, 0, err
	}
	return p, total, nil
}

func decodeBody(p Packet, body []byte, remainingLength uint32) error {
	r := bytes.NewReader(body)
	if err := p.decode(r, remainingLength); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return newDecodeError(p.Type(), "remaining length %d too short for the content", remainingLength)
		}
		return &DecodeError{Type: p.Type(), Err: err}
	}
	if r.Len() != 0 {
		return newDecodeError(p.Type(), "%d unexpected trailing bytes", r.Len())
	}
	return nil
}

// readFrom reads one packet from a blocking reader
func readFrom(r io.Reader) (Packet, error) {
	byte0, remainingLength, err := readFixedHeader(r)
	if err != nil {
		return nil, err
	}

	p, err := newPacketWithHeader(byte0)
	if err != nil {
		return nil, err
	}

	if err := validateRemainingLength(p.Type(), remainingLength); err != nil {
		return nil, err
	}

	body := make([]byte, remainingLength)
	if _, err = io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return p, decodeBody(p, body, remainingLength)
}

func writeTo(p Packet, w io.Writer) error {
	return p.encode(w)
}

// newPacketWithHeader validates the first header byte and returns
// an empty packet of the matching type
func newPacketWithHeader(byte0 byte) (Packet, error) {
	pktType, flags := packettype.FromHeader(byte0)
	if !pktType.ValidFlags(flags) {
		if pktType.Text() == "" || pktType == packettype.RESERVED {
			return nil, newDecodeError(pktType, "reserved packet type %d", byte(pktType))
		}
		return nil, newDecodeError(pktType, "invalid fixed header flags 0x%x", flags)
	}

	switch pktType {
	case packettype.CONNECT:
		return &Connect{}, nil
	case packettype.CONNACK:
		return &ConnAck{}, nil
	case packettype.PUBLISH:
		qos, dup, retain := decodePublishHeader(byte0)
		return &Publish{QoSLevel: qos, DUPFlag: dup, Retain: retain}, nil
	case packettype.PUBACK:
		return &PubAck{}, nil
	case packettype.PUBREC:
		return &PubRec{}, nil
	case packettype.PUBREL:
		return &PubRel{}, nil
	case packettype.PUBCOMP:
		return &PubComp{}, nil
	case packettype.SUBSCRIBE:
		return &Subscribe{}, nil
	case packettype.SUBACK:
		return &SubAck{}, nil
	case packettype.PINGREQ:
		return &PingReq{}, nil
	case packettype.PINGRESP:
		return &PingResp{}, nil
	case packettype.DISCONNECT:
		return &Disconnect{}, nil
	}
	return nil, newDecodeError(pktType, "unsupported packet type")
}

// validateRemainingLength checks lengths that are fixed by the packet type
func validateRemainingLength(pt PacketType, remainingLength uint32) error {
	var want uint32
	switch pt {
	case packettype.CONNACK, packettype.PUBACK, packettype.PUBREC,
		packettype.PUBREL, packettype.PUBCOMP:
		want = 2
	case packettype.PINGREQ, packettype.PINGRESP, packettype.DISCONNECT:
		want = 0
	default:
		return nil
	}
	if remainingLength != want {
		return newDecodeError(pt, "remaining length must be %d, got %d", want, remainingLength)
	}
	return nil
}

func readFixedHeader(r io.Reader) (byte, uint32, error) {
	byte0, err := mqttutil.DecodeByte(r)
	if err != nil {
		return 0, 0, err
	}

	remainingLength, _, err := mqttutil.DecodeVarUint32(r)
	if err != nil {
		return 0, 0, err
	}

	return byte0, remainingLength, nil
}

// encodeFixedHeader writes the header for a packet with the given remaining length
func encodeFixedHeader(buf *bytes.Buffer, byte0 byte, remainingLength uint32) error {
	buf.Grow(int(1 + mqttutil.EncodedVarUint32Size(remainingLength) + remainingLength))
	if err := mqttutil.EncodeByte(buf, byte0); err != nil {
		return err
	}
	return mqttutil.EncodeVarUint32(buf, remainingLength)
}
