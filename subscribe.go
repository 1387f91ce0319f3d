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
	ErrNoSubscriptions = errors.New("SUBSCRIBE must contain at least one topic filter")
)

// Subscription a topic filter and the maximum QoS requested for it
type Subscription struct {
	TopicFilter string
	QoSLevel    byte
}

// Subscribe MQTT SUBSCRIBE packet
type Subscribe struct {
	PacketID      uint16
	Subscriptions []Subscription
}

// Type the packet type
func (s *Subscribe) Type() PacketType { return packettype.SUBSCRIBE }

func (s *Subscribe) encode(w io.Writer) error {
	if len(s.Subscriptions) == 0 {
		return ErrNoSubscriptions
	}
	if s.PacketID == 0 {
		return fmt.Errorf("SUBSCRIBE requires a non zero packet identifier")
	}

	remainingLength := uint32(2)
	for _, subscription := range s.Subscriptions {
		if subscription.QoSLevel > 2 {
			return ErrInvalidQoS
		}
		remainingLength += mqttutil.EncodedUTF8StringSize(subscription.TopicFilter) + 1
	}

	var packet bytes.Buffer
	if err := encodeFixedHeader(&packet, packettype.SUBSCRIBE.Header(0x02), remainingLength); err != nil {
		return err
	}

	if err := mqttutil.EncodeBigEndianUint16(&packet, s.PacketID); err != nil {
		return err
	}

	for _, subscription := range s.Subscriptions {
		if err := mqttutil.EncodeUTF8String(&packet, subscription.TopicFilter); err != nil {
			return err
		}
		mqttutil.EncodeByte(&packet, subscription.QoSLevel)
	}

	_, err := packet.WriteTo(w)
	return err
}

func (s *Subscribe) decode(r io.Reader, remainingLen uint32) error {
	var err error
	s.PacketID, err = decodePublishResponse(r)
	if err != nil {
		return err
	}

	remaining := int(remainingLen) - 2
	for remaining > 0 {
		topicFilter, n, err := mqttutil.DecodeUTF8String(r)
		if err != nil {
			return err
		}
		qos, err := mqttutil.DecodeByte(r)
		if err != nil {
			return err
		}
		// 3.8.3.1 upper 6 bits are reserved
		if qos > 2 {
			return fmt.Errorf("invalid requested QoS 0x%x", qos)
		}
		s.Subscriptions = append(s.Subscriptions, Subscription{TopicFilter: topicFilter, QoSLevel: qos})
		remaining -= n + 1
	}

	if len(s.Subscriptions) == 0 {
		return ErrNoSubscriptions
	}
	return nil
}
