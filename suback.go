package mqtt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/srishina/mqtt311/internal/mqttutil"
	"github.com/srishina/mqtt311/internal/packettype"
)

// SubAckReturnCode granted QoS or failure for one subscription
type SubAckReturnCode byte

const (
	SubAckReturnCodeGrantedQoS0 SubAckReturnCode = 0x00
	SubAckReturnCodeGrantedQoS1 SubAckReturnCode = 0x01
	SubAckReturnCodeGrantedQoS2 SubAckReturnCode = 0x02
	SubAckReturnCodeFailure     SubAckReturnCode = 0x80
)

var subAckReturnCodeText = map[SubAckReturnCode]string{
	SubAckReturnCodeGrantedQoS0: "Success - Maximum QoS 0",
	SubAckReturnCodeGrantedQoS1: "Success - Maximum QoS 1",
	SubAckReturnCodeGrantedQoS2: "Success - Maximum QoS 2",
	SubAckReturnCodeFailure:     "Failure",
}

// Text returns a text for the SUBACK return code. Returns the empty
// string if the code is unknown.
func (code SubAckReturnCode) Text() string {
	return subAckReturnCodeText[code]
}

// SubAck MQTT SUBACK packet
type SubAck struct {
	PacketID    uint16
	ReturnCodes []SubAckReturnCode
}

// Type the packet type
func (s *SubAck) Type() PacketType { return packettype.SUBACK }

func (s *SubAck) encode(w io.Writer) error {
	remainingLength := uint32(2 + len(s.ReturnCodes))

	var packet bytes.Buffer
	if err := encodeFixedHeader(&packet, packettype.SUBACK.Header(0), remainingLength); err != nil {
		return err
	}

	if err := mqttutil.EncodeBigEndianUint16(&packet, s.PacketID); err != nil {
		return err
	}

	for _, code := range s.ReturnCodes {
		mqttutil.EncodeByte(&packet, byte(code))
	}

	_, err := packet.WriteTo(w)
	return err
}

func (s *SubAck) decode(r io.Reader, remainingLen uint32) error {
	var err error
	s.PacketID, err = decodePublishResponse(r)
	if err != nil {
		return err
	}

	if remainingLen < 3 {
		return fmt.Errorf("SUBACK without return codes")
	}

	s.ReturnCodes = make([]SubAckReturnCode, 0, remainingLen-2)
	for i := uint32(2); i < remainingLen; i++ {
		code, err := mqttutil.DecodeByte(r)
		if err != nil {
			return err
		}
		if _, ok := subAckReturnCodeText[SubAckReturnCode(code)]; !ok {
			return fmt.Errorf("invalid SUBACK return code 0x%x", code)
		}
		s.ReturnCodes = append(s.ReturnCodes, SubAckReturnCode(code))
	}
	return nil
}
