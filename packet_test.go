package mqtt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/srishina/mqtt311/internal/packettype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePackets one valid instance of every packet type
func samplePackets() []Packet {
	return []Packet{
		&Connect{CleanSession: true, KeepAlive: 30, ClientID: "client-1"},
		&Connect{KeepAlive: 5, WillFlag: true, WillQoS: 2, WillTopic: "status",
			WillMessage: []byte("offline"), ClientID: "c", UserName: "user", Password: []byte("pw")},
		&ConnAck{SessionPresent: true, ReturnCode: ConnAckReturnCodeAccepted},
		&ConnAck{ReturnCode: ConnAckReturnCodeServerUnavailable},
		&Publish{TopicName: "a/b", Payload: []byte("hello")},
		&Publish{QoSLevel: 1, TopicName: "a/b", PacketID: 1, Payload: []byte{0x00, 0xFF}},
		&Publish{QoSLevel: 2, DUPFlag: true, Retain: true, TopicName: "x", PacketID: 65535},
		&PubAck{PacketID: 1},
		&PubRec{PacketID: 2},
		&PubRel{PacketID: 3},
		&PubComp{PacketID: 4},
		&Subscribe{PacketID: 9, Subscriptions: []Subscription{{TopicFilter: "sensors/+/temp", QoSLevel: 2}}},
		&SubAck{PacketID: 9, ReturnCodes: []SubAckReturnCode{SubAckReturnCodeGrantedQoS2}},
		&PingReq{},
		&PingResp{},
		&Disconnect{},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, pkt := range samplePackets() {
		t.Run(pkt.Type().String(), func(t *testing.T) {
			b, err := Encode(pkt)
			require.NoError(t, err)

			decoded, n, err := Decode(b)
			require.NoError(t, err)
			require.Equal(t, len(b), n)
			require.Equal(t, pkt, decoded)
		})
	}
}

func TestDecodeStrictPrefixIsIncomplete(t *testing.T) {
	for _, pkt := range samplePackets() {
		b, err := Encode(pkt)
		require.NoError(t, err)

		for i := 0; i < len(b); i++ {
			p, n, err := Decode(b[:i])
			require.ErrorIs(t, err, ErrDecodeIncomplete, "%s prefix of %d bytes", pkt.Type(), i)
			require.Nil(t, p)
			require.Zero(t, n)
		}
	}
}

func TestDecodeConsumesOnePacket(t *testing.T) {
	var stream []byte
	for _, pkt := range []Packet{&PubAck{PacketID: 1}, &PingResp{}, &PubRec{PacketID: 2}} {
		b, err := Encode(pkt)
		require.NoError(t, err)
		stream = append(stream, b...)
	}

	var got []Packet
	for len(stream) > 0 {
		pkt, n, err := Decode(stream)
		require.NoError(t, err)
		got = append(got, pkt)
		stream = stream[n:]
	}
	require.Equal(t, []Packet{&PubAck{PacketID: 1}, &PingResp{}, &PubRec{PacketID: 2}}, got)
}

func TestDecodeInvalidFixedHeader(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		pt      packettype.PacketType
	}{
		{name: "reserved type 0", encoded: []byte{0x00, 0x00}, pt: packettype.RESERVED},
		{name: "reserved type 15", encoded: []byte{0xF0, 0x00}, pt: packettype.PacketType(15)},
		{name: "UNSUBSCRIBE is not supported", encoded: []byte{0xA2, 0x05, 0x00, 0x01, 0x00, 0x01, '#'}, pt: packettype.UNSUBSCRIBE},
		{name: "remaining length over 4 bytes", encoded: []byte{0x30, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, pt: packettype.PUBLISH},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, n, err := Decode(test.encoded)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected a DecodeError, got %v", err)
			require.Equal(t, test.pt, decodeErr.Type)
			require.Nil(t, p)
			require.Zero(t, n)
		})
	}
}

func TestDecodeEmptyBuffer(t *testing.T) {
	_, _, err := Decode(nil)
	require.ErrorIs(t, err, ErrDecodeIncomplete)
}

func TestReadFromStream(t *testing.T) {
	b, err := Encode(&SubAck{PacketID: 4, ReturnCodes: []SubAckReturnCode{SubAckReturnCodeFailure}})
	require.NoError(t, err)

	pkt, err := readFrom(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, &SubAck{PacketID: 4, ReturnCodes: []SubAckReturnCode{SubAckReturnCodeFailure}}, pkt)
}

// The paho codec is an independent implementation of the same wire format.

func TestEncodeReadableByPaho(t *testing.T) {
	b, err := Encode(&Connect{CleanSession: true, KeepAlive: 30, ClientID: "client-1", UserName: "u", Password: []byte("p")})
	require.NoError(t, err)
	cp, err := packets.ReadPacket(bytes.NewReader(b))
	require.NoError(t, err)
	connect, ok := cp.(*packets.ConnectPacket)
	require.True(t, ok)
	assert.Equal(t, "MQTT", connect.ProtocolName)
	assert.Equal(t, byte(4), connect.ProtocolVersion)
	assert.True(t, connect.CleanSession)
	assert.Equal(t, uint16(30), connect.Keepalive)
	assert.Equal(t, "client-1", connect.ClientIdentifier)
	assert.Equal(t, "u", connect.Username)
	assert.Equal(t, []byte("p"), connect.Password)

	b, err = Encode(&Publish{QoSLevel: 2, Retain: true, TopicName: "a/b", PacketID: 7, Payload: []byte("hi")})
	require.NoError(t, err)
	cp, err = packets.ReadPacket(bytes.NewReader(b))
	require.NoError(t, err)
	publish, ok := cp.(*packets.PublishPacket)
	require.True(t, ok)
	assert.Equal(t, byte(2), publish.Qos)
	assert.True(t, publish.Retain)
	assert.Equal(t, "a/b", publish.TopicName)
	assert.Equal(t, uint16(7), publish.MessageID)
	assert.Equal(t, []byte("hi"), publish.Payload)

	b, err = Encode(&PubRel{PacketID: 7})
	require.NoError(t, err)
	cp, err = packets.ReadPacket(bytes.NewReader(b))
	require.NoError(t, err)
	pubrel, ok := cp.(*packets.PubrelPacket)
	require.True(t, ok)
	assert.Equal(t, uint16(7), pubrel.MessageID)

	b, err = Encode(&Subscribe{PacketID: 3, Subscriptions: []Subscription{{TopicFilter: "a/#", QoSLevel: 1}}})
	require.NoError(t, err)
	cp, err = packets.ReadPacket(bytes.NewReader(b))
	require.NoError(t, err)
	subscribe, ok := cp.(*packets.SubscribePacket)
	require.True(t, ok)
	assert.Equal(t, uint16(3), subscribe.MessageID)
	assert.Equal(t, []string{"a/#"}, subscribe.Topics)
	assert.Equal(t, []byte{1}, subscribe.Qoss)
}

func TestDecodePahoPackets(t *testing.T) {
	connack := packets.NewControlPacket(packets.Connack).(*packets.ConnackPacket)
	connack.SessionPresent = true
	connack.ReturnCode = packets.ErrRefusedNotAuthorised

	publish := packets.NewControlPacket(packets.Publish).(*packets.PublishPacket)
	publish.TopicName = "test/topic"
	publish.Qos = 1
	publish.MessageID = 42
	publish.Payload = []byte("test payload")

	pubrec := packets.NewControlPacket(packets.Pubrec).(*packets.PubrecPacket)
	pubrec.MessageID = 5

	pubcomp := packets.NewControlPacket(packets.Pubcomp).(*packets.PubcompPacket)
	pubcomp.MessageID = 5

	suback := packets.NewControlPacket(packets.Suback).(*packets.SubackPacket)
	suback.MessageID = 8
	suback.ReturnCodes = []byte{0x00, 0x80}

	tests := []struct {
		in   packets.ControlPacket
		want Packet
	}{
		{in: connack, want: &ConnAck{SessionPresent: true, ReturnCode: ConnAckReturnCodeNotAuthorized}},
		{in: publish, want: &Publish{QoSLevel: 1, TopicName: "test/topic", PacketID: 42, Payload: []byte("test payload")}},
		{in: pubrec, want: &PubRec{PacketID: 5}},
		{in: pubcomp, want: &PubComp{PacketID: 5}},
		{in: suback, want: &SubAck{PacketID: 8, ReturnCodes: []SubAckReturnCode{SubAckReturnCodeGrantedQoS0, SubAckReturnCodeFailure}}},
		{in: packets.NewControlPacket(packets.Pingresp), want: &PingResp{}},
	}

	for _, test := range tests {
		t.Run(test.want.Type().String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, test.in.Write(&buf))

			pkt, n, err := Decode(buf.Bytes())
			require.NoError(t, err)
			require.Equal(t, buf.Len(), n)
			require.Equal(t, test.want, pkt)
		})
	}
}
