package mqtt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/srishina/mqtt311/internal/mqttutil"
	"github.com/srishina/mqtt311/internal/packettype"
)

// Publish MQTT PUBLISH packet
type Publish struct {
	QoSLevel  byte
	DUPFlag   bool
	Retain    bool
	TopicName string
	// PacketID is present only when QoS level is 1 or 2. The session
	// assigns one when it is zero.
	PacketID uint16
	Payload  []byte
}

// Type the packet type
func (p *Publish) Type() PacketType { return packettype.PUBLISH }

func (p *Publish) String() string {
	return fmt.Sprintf("Topic: %s QoS: %d DUP: %t Retain: %t Packet ID: %d Payload: %d bytes",
		p.TopicName, p.QoSLevel, p.DUPFlag, p.Retain, p.PacketID, len(p.Payload))
}

// clone deep copy, the payload is not shared
func (p *Publish) clone() *Publish {
	c := *p
	if len(p.Payload) > 0 {
		c.Payload = append([]byte(nil), p.Payload...)
	} else {
		c.Payload = nil
	}
	return &c
}

func (p *Publish) header() byte {
	return packettype.PUBLISH.Header(mqttutil.BoolToByte(p.DUPFlag)<<3 | p.QoSLevel<<1 | mqttutil.BoolToByte(p.Retain))
}

func (p *Publish) encode(w io.Writer) error {
	if p.QoSLevel > 2 {
		return ErrInvalidQoS
	}
	// A PUBLISH packet MUST NOT contain a Packet Identifier if its QoS value is set to 0 [MQTT-2.3.1-5].
	if p.QoSLevel > 0 && p.PacketID == 0 {
		return fmt.Errorf("PUBLISH with QoS %d requires a non zero packet identifier", p.QoSLevel)
	}
	if p.QoSLevel == 0 && p.DUPFlag {
		return fmt.Errorf("PUBLISH with QoS 0 must not set DUP")
	}

	remainingLength := mqttutil.EncodedUTF8StringSize(p.TopicName) + uint32(len(p.Payload))
	if p.QoSLevel > 0 {
		remainingLength += 2
	}

	var packet bytes.Buffer
	if err := encodeFixedHeader(&packet, p.header(), remainingLength); err != nil {
		return err
	}

	if err := mqttutil.EncodeUTF8String(&packet, p.TopicName); err != nil {
		return err
	}

	if p.QoSLevel > 0 {
		if err := mqttutil.EncodeBigEndianUint16(&packet, p.PacketID); err != nil {
			return err
		}
	}

	packet.Write(p.Payload)

	_, err := packet.WriteTo(w)
	return err
}

func (p *Publish) decode(r io.Reader, remainingLen uint32) error {
	var err error
	var n int
	p.TopicName, n, err = mqttutil.DecodeUTF8String(r)
	if err != nil {
		return err
	}
	remaining := int(remainingLen) - n

	if p.QoSLevel > 0 {
		p.PacketID, err = mqttutil.DecodeBigEndianUint16(r)
		if err != nil {
			return err
		}

		if p.PacketID == 0 {
			return fmt.Errorf("PUBLISH with QoS %d has packet identifier 0", p.QoSLevel)
		}
		remaining -= 2
	}

	if remaining < 0 {
		return io.ErrUnexpectedEOF
	}
	if remaining == 0 {
		p.Payload = nil
		return nil
	}

	p.Payload = make([]byte, remaining)
	_, err = io.ReadFull(r, p.Payload)
	return err
}

func decodePublishHeader(byte0 byte) (byte, bool, bool) {
	return ((byte0 >> 1) & 0x03), (byte0 & 0x08) > 0, (byte0 & 0x01) > 0
}
