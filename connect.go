package mqtt

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/srishina/mqtt311/internal/mqttutil"
	"github.com/srishina/mqtt311/internal/packettype"
)

var (
	ErrInvalidProtocolName  = errors.New("invalid protocol name")
	ErrInvalidProtocolLevel = errors.New("unsupported protocol level")
	ErrInvalidConnectFlags  = errors.New("invalid connect flags - Malformed packet")
	ErrInvalidWillQos       = errors.New("invalid QoS - Malformed packet")
	ErrInvalidWillRetain    = errors.New("invalid retain flag - Malformed packet")
	ErrInvalidPassword      = errors.New("password flag set without user name - Malformed packet")
)

// Connect MQTT connect packet
type Connect struct {
	CleanSession bool
	KeepAlive    uint16
	WillFlag     bool
	WillQoS      byte
	WillRetain   bool
	WillTopic    string
	WillMessage  []byte
	ClientID     string
	UserName     string
	Password     []byte
}

// Type the packet type
func (c *Connect) Type() PacketType { return packettype.CONNECT }

func (c *Connect) String() string {
	fields := fmt.Sprintf("Clean session: %t Keep alive: %d Will flag: %t", c.CleanSession, c.KeepAlive, c.WillFlag)

	if c.WillFlag {
		fields += fmt.Sprintf(", Will Topic: %s Will Retain: %t Will QoS: %d Will message: [% x]",
			c.WillTopic, c.WillRetain, c.WillQoS, c.WillMessage)
	}

	if len(c.ClientID) > 0 {
		fields += fmt.Sprintf(", Client ID: %s", c.ClientID)
	}

	if len(c.UserName) > 0 {
		fields += fmt.Sprintf(", User name: %s", c.UserName)
	}

	if len(c.Password) > 0 {
		fields += ", Password: ***"
	}
	return fields
}

func (c *Connect) flags() byte {
	connectFlags := byte(0)
	if c.CleanSession {
		connectFlags |= 0x02
	}

	if c.WillFlag {
		connectFlags |= 0x04 // Will flag
		connectFlags |= (c.WillQoS << 3)
		if c.WillRetain {
			connectFlags |= 0x20 // retain
		}
	}

	if len(c.UserName) > 0 {
		connectFlags |= 0x80
		if len(c.Password) > 0 {
			connectFlags |= 0x40
		}
	}
	return connectFlags
}

// encode encode the Connect packet and perform protocol validation
func (c *Connect) encode(w io.Writer) error {
	if c.WillQoS > 2 {
		return ErrInvalidWillQos
	}
	connectFlags := c.flags()
	if err := validateConnectFlag(connectFlags); err != nil {
		return err
	}

	// 10 = protocolname + level + flags + keepalive
	remainingLength := 10 + mqttutil.EncodedUTF8StringSize(c.ClientID)
	if c.WillFlag {
		remainingLength += mqttutil.EncodedUTF8StringSize(c.WillTopic) + uint32(2+len(c.WillMessage))
	}
	if connectFlags&0x80 != 0 {
		remainingLength += mqttutil.EncodedUTF8StringSize(c.UserName)
	}
	if connectFlags&0x40 != 0 {
		remainingLength += uint32(2 + len(c.Password))
	}

	var packet bytes.Buffer
	if err := encodeFixedHeader(&packet, packettype.CONNECT.Header(0), remainingLength); err != nil {
		return err
	}

	packet.Write([]byte{0x0, 0x4, 'M', 'Q', 'T', 'T', PROTOCOLLEVEL})
	packet.WriteByte(connectFlags)

	if err := mqttutil.EncodeBigEndianUint16(&packet, c.KeepAlive); err != nil {
		return err
	}

	if err := mqttutil.EncodeUTF8String(&packet, c.ClientID); err != nil {
		return err
	}

	if c.WillFlag {
		if err := mqttutil.EncodeUTF8String(&packet, c.WillTopic); err != nil {
			return err
		}

		if err := mqttutil.EncodeBinaryData(&packet, c.WillMessage); err != nil {
			return err
		}
	}

	if connectFlags&0x80 != 0 {
		if err := mqttutil.EncodeUTF8String(&packet, c.UserName); err != nil {
			return err
		}
	}

	if connectFlags&0x40 != 0 {
		if err := mqttutil.EncodeBinaryData(&packet, c.Password); err != nil {
			return err
		}
	}

	_, err := packet.WriteTo(w)
	return err
}

func (c *Connect) decode(r io.Reader, remainingLen uint32) error {
	var pname [6]byte
	if _, err := io.ReadFull(r, pname[:]); err != nil {
		return err
	}

	if !bytes.Equal(pname[:], []byte{0, 4, 'M', 'Q', 'T', 'T'}) {
		return ErrInvalidProtocolName
	}

	level, err := mqttutil.DecodeByte(r)
	if err != nil {
		return err
	}
	if level != PROTOCOLLEVEL {
		return fmt.Errorf("%w %d", ErrInvalidProtocolLevel, level)
	}

	connectFlag, err := mqttutil.DecodeByte(r)
	if err != nil {
		return err
	}

	if err := validateConnectFlag(connectFlag); err != nil {
		return err
	}

	c.CleanSession = (connectFlag & 0x02) > 0
	c.WillFlag = (connectFlag & 0x04) > 0
	passwordFlag := (connectFlag & 0x40) > 0
	usernameFlag := (connectFlag & 0x80) > 0

	c.KeepAlive, err = mqttutil.DecodeBigEndianUint16(r)
	if err != nil {
		return err
	}

	c.ClientID, _, err = mqttutil.DecodeUTF8String(r)
	if err != nil {
		return err
	}

	if c.WillFlag {
		c.WillQoS = 0x03 & (connectFlag >> 0x03)
		c.WillRetain = (connectFlag & 0x20) > 0
		c.WillTopic, _, err = mqttutil.DecodeUTF8String(r)
		if err != nil {
			return err
		}
		c.WillMessage, _, err = mqttutil.DecodeBinaryData(r)
		if err != nil {
			return err
		}
	}

	if usernameFlag {
		c.UserName, _, err = mqttutil.DecodeUTF8String(r)
		if err != nil {
			return err
		}
	}

	if passwordFlag {
		c.Password, _, err = mqttutil.DecodeBinaryData(r)
	}

	return err
}

func validateConnectFlag(connectFlag byte) error {
	if connectFlag&0x01 != 0 {
		return ErrInvalidConnectFlags
	}

	willFlag := (connectFlag & 0x04) > 0
	willQoS := 0x03 & (connectFlag >> 0x03)
	willRetain := (connectFlag & 0x20) > 0
	// 3.1.2.6
	if (willFlag && (willQoS > 2)) || (!willFlag && willQoS != 0) {
		return ErrInvalidWillQos
	}

	// 3.1.2.7
	if !willFlag && willRetain {
		return ErrInvalidWillRetain
	}

	// 3.1.2.9
	if connectFlag&0x40 != 0 && connectFlag&0x80 == 0 {
		return ErrInvalidPassword
	}

	return nil
}
