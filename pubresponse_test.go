package mqtt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/srishina/mqtt311/internal/packettype"
	"github.com/stretchr/testify/require"
)

func TestCodecPublishResponsePackets(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    Packet
	}{
		{encoded: []byte{0x40, 0x02, 0x00, 0x01}, want: &PubAck{PacketID: 1}},
		{encoded: []byte{0x50, 0x02, 0x00, 0x07}, want: &PubRec{PacketID: 7}},
		{encoded: []byte{0x62, 0x02, 0x00, 0x07}, want: &PubRel{PacketID: 7}},
		{encoded: []byte{0x70, 0x02, 0xFF, 0xFF}, want: &PubComp{PacketID: 65535}},
	}

	for _, test := range tests {
		t.Run(test.want.Type().String(), func(t *testing.T) {
			reader := bytes.NewBuffer(test.encoded)
			byte0, remainingLength, err := readFixedHeader(reader)
			require.NoError(t, err)
			require.Equal(t, test.want.Type(), packettype.PacketType(byte0>>4))
			require.Equal(t, uint32(2), remainingLength)

			pkt, n, err := Decode(test.encoded)
			require.NoError(t, err)
			require.Equal(t, 4, n)
			require.Equal(t, test.want, pkt)

			var buf bytes.Buffer
			require.NoError(t, writeTo(pkt, &buf))
			require.Equal(t, test.encoded, buf.Bytes())
		})
	}
}

func TestCodecPublishResponseInvalidPacket(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		pt      packettype.PacketType
	}{
		{name: "PUBREL without the mandatory flags", encoded: []byte{0x60, 0x02, 0x00, 0x01}, pt: packettype.PUBREL},
		{name: "PUBACK with flags", encoded: []byte{0x42, 0x02, 0x00, 0x01}, pt: packettype.PUBACK},
		{name: "PUBACK remaining length 3", encoded: []byte{0x40, 0x03, 0x00, 0x01, 0x00}, pt: packettype.PUBACK},
		{name: "PUBREC remaining length 1", encoded: []byte{0x50, 0x01, 0x00}, pt: packettype.PUBREC},
		{name: "PUBCOMP packet identifier 0", encoded: []byte{0x70, 0x02, 0x00, 0x00}, pt: packettype.PUBCOMP},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := Decode(test.encoded)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected a DecodeError, got %v", err)
			require.Equal(t, test.pt, decodeErr.Type)
			require.ErrorIs(t, err, ErrMalformedPacket)
		})
	}
}

func TestCodecPublishResponseZeroPacketID(t *testing.T) {
	for _, pkt := range []Packet{&PubAck{}, &PubRec{}, &PubRel{}, &PubComp{}} {
		_, err := Encode(pkt)
		require.Error(t, err, pkt.Type().String())
	}
}
