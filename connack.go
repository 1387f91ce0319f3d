package mqtt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/srishina/mqtt311/internal/mqttutil"
	"github.com/srishina/mqtt311/internal/packettype"
)

// ConnAckReturnCode MQTT CONNACK return code, MQTT 3.1.1 3.2.2.3
type ConnAckReturnCode byte

const (
	ConnAckReturnCodeAccepted                    ConnAckReturnCode = 0x00
	ConnAckReturnCodeUnacceptableProtocolVersion ConnAckReturnCode = 0x01
	ConnAckReturnCodeIdentifierRejected          ConnAckReturnCode = 0x02
	ConnAckReturnCodeServerUnavailable           ConnAckReturnCode = 0x03
	ConnAckReturnCodeBadUserNameOrPassword       ConnAckReturnCode = 0x04
	ConnAckReturnCodeNotAuthorized               ConnAckReturnCode = 0x05
)

var connAckReturnCodeText = map[ConnAckReturnCode]string{
	ConnAckReturnCodeAccepted:                    "Connection Accepted",
	ConnAckReturnCodeUnacceptableProtocolVersion: "Unacceptable protocol version",
	ConnAckReturnCodeIdentifierRejected:          "Identifier rejected",
	ConnAckReturnCodeServerUnavailable:           "Server unavailable",
	ConnAckReturnCodeBadUserNameOrPassword:       "Bad user name or password",
	ConnAckReturnCodeNotAuthorized:               "Not authorized",
}

var connAckReturnCodeDesc = map[ConnAckReturnCode]string{
	ConnAckReturnCodeAccepted:                    "Connection accepted.",
	ConnAckReturnCodeUnacceptableProtocolVersion: "The Server does not support the level of the MQTT protocol requested by the Client.",
	ConnAckReturnCodeIdentifierRejected:          "The Client identifier is correct UTF-8 but not allowed by the Server.",
	ConnAckReturnCodeServerUnavailable:           "The Network Connection has been made but the MQTT service is unavailable.",
	ConnAckReturnCodeBadUserNameOrPassword:       "The data in the user name or password is malformed.",
	ConnAckReturnCodeNotAuthorized:               "The Client is not authorized to connect.",
}

// Text returns a text for the CONNACK return code. Returns
// "Reserved" if the code is unknown.
func (code ConnAckReturnCode) Text() string {
	if s, ok := connAckReturnCodeText[code]; ok {
		return s
	}
	return "Reserved"
}

// Desc returns a description for the CONNACK return code. Returns the empty
// string if the code is unknown.
func (code ConnAckReturnCode) Desc() string {
	return connAckReturnCodeDesc[code]
}

// ConnAck MQTT CONNACK packet
type ConnAck struct {
	SessionPresent bool
	ReturnCode     ConnAckReturnCode
}

// Type the packet type
func (c *ConnAck) Type() PacketType { return packettype.CONNACK }

func (c *ConnAck) String() string {
	return fmt.Sprintf("Session present: %t Return code: %s", c.SessionPresent, c.ReturnCode.Text())
}

func (c *ConnAck) encode(w io.Writer) error {
	var packet bytes.Buffer
	if err := encodeFixedHeader(&packet, packettype.CONNACK.Header(0), 2); err != nil {
		return err
	}
	mqttutil.EncodeByte(&packet, mqttutil.BoolToByte(c.SessionPresent))
	mqttutil.EncodeByte(&packet, byte(c.ReturnCode))

	_, err := packet.WriteTo(w)
	return err
}

func (c *ConnAck) decode(r io.Reader, remainingLen uint32) error {
	ackFlags, err := mqttutil.DecodeByte(r)
	if err != nil {
		return err
	}
	// 3.2.2.1 bits 7-1 are reserved
	if ackFlags&0xFE != 0 {
		return fmt.Errorf("reserved connect acknowledge flags set 0x%x", ackFlags)
	}
	c.SessionPresent = ackFlags&0x01 != 0

	code, err := mqttutil.DecodeByte(r)
	if err != nil {
		return err
	}
	c.ReturnCode = ConnAckReturnCode(code)
	return nil
}
