package mqtt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/srishina/mqtt311/internal/mqttutil"
	"github.com/srishina/mqtt311/internal/packettype"
)

// PUBACK, PUBREC, PUBREL and PUBCOMP share one layout: the fixed
// header with a remaining length of 2 followed by the packet identifier.

func encodePublishResponse(w io.Writer, byte0 byte, id uint16) error {
	if id == 0 {
		return fmt.Errorf("%s requires a non zero packet identifier", packettype.PacketType(byte0>>4))
	}

	var packet bytes.Buffer
	if err := encodeFixedHeader(&packet, byte0, 2); err != nil {
		return err
	}

	if err := mqttutil.EncodeBigEndianUint16(&packet, id); err != nil {
		return err
	}

	_, err := packet.WriteTo(w)
	return err
}

func decodePublishResponse(r io.Reader) (uint16, error) {
	packetID, err := mqttutil.DecodeBigEndianUint16(r)
	if err != nil {
		return 0, err
	}
	if packetID == 0 {
		return 0, fmt.Errorf("packet identifier must not be 0")
	}
	return packetID, nil
}

// PubAck MQTT PUBACK packet, response to a QoS 1 PUBLISH
type PubAck struct {
	PacketID uint16
}

// Type the packet type
func (pa *PubAck) Type() PacketType { return packettype.PUBACK }

func (pa *PubAck) encode(w io.Writer) error {
	return encodePublishResponse(w, packettype.PUBACK.Header(0), pa.PacketID)
}

func (pa *PubAck) decode(r io.Reader, remainingLen uint32) error {
	var err error
	pa.PacketID, err = decodePublishResponse(r)
	return err
}

// PubRec MQTT PUBREC packet, first response to a QoS 2 PUBLISH
type PubRec struct {
	PacketID uint16
}

// Type the packet type
func (pr *PubRec) Type() PacketType { return packettype.PUBREC }

func (pr *PubRec) encode(w io.Writer) error {
	return encodePublishResponse(w, packettype.PUBREC.Header(0), pr.PacketID)
}

func (pr *PubRec) decode(r io.Reader, remainingLen uint32) error {
	var err error
	pr.PacketID, err = decodePublishResponse(r)
	return err
}

// PubRel MQTT PUBREL packet, response to PUBREC
type PubRel struct {
	PacketID uint16
}

// Type the packet type
func (pr *PubRel) Type() PacketType { return packettype.PUBREL }

func (pr *PubRel) encode(w io.Writer) error {
	const fixedHeader = byte(0x62) // 01100010
	return encodePublishResponse(w, fixedHeader, pr.PacketID)
}

func (pr *PubRel) decode(r io.Reader, remainingLen uint32) error {
	var err error
	pr.PacketID, err = decodePublishResponse(r)
	return err
}

// PubComp MQTT PUBCOMP packet, response to PUBREL
type PubComp struct {
	PacketID uint16
}

// Type the packet type
func (pc *PubComp) Type() PacketType { return packettype.PUBCOMP }

func (pc *PubComp) encode(w io.Writer) error {
	return encodePublishResponse(w, packettype.PUBCOMP.Header(0), pc.PacketID)
}

func (pc *PubComp) decode(r io.Reader, remainingLen uint32) error {
	var err error
	pc.PacketID, err = decodePublishResponse(r)
	return err
}
