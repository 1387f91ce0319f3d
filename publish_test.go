package mqtt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/srishina/mqtt311/internal/packettype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecPublishPacket(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		want    *Publish
	}{
		{
			name:    "QoS 0",
			encoded: []byte{0x30, 0x07, 0x00, 0x03, 'a', '/', 'b', 'h', 'i'},
			want:    &Publish{TopicName: "a/b", Payload: []byte("hi")},
		},
		{
			name:    "QoS 1",
			encoded: []byte{0x32, 0x06, 0x00, 0x01, 't', 0x00, 0x01, 'x'},
			want:    &Publish{QoSLevel: 1, TopicName: "t", PacketID: 1, Payload: []byte("x")},
		},
		{
			name:    "QoS 2 DUP retain without payload",
			encoded: []byte{0x3D, 0x05, 0x00, 0x01, 't', 0x00, 0x07},
			want:    &Publish{QoSLevel: 2, DUPFlag: true, Retain: true, TopicName: "t", PacketID: 7},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reader := bytes.NewBuffer(test.encoded)
			byte0, remainingLength, err := readFixedHeader(reader)
			require.NoError(t, err, "Decoding PUBLISH fixed header returned error")
			require.Equal(t, packettype.PUBLISH, packettype.PacketType(byte0>>4))

			qos, dup, retain := decodePublishHeader(byte0)
			p := Publish{QoSLevel: qos, DUPFlag: dup, Retain: retain}
			require.NoError(t, p.decode(reader, remainingLength), "Publish.decode returned an error")
			require.Equal(t, test.want, &p)

			var buf bytes.Buffer
			require.NoError(t, p.encode(&buf), "Publish.encode returned an error")
			require.Equal(t, test.encoded, buf.Bytes())
		})
	}
}

func TestCodecPublishLargePayload(t *testing.T) {
	// remaining length 2+1+200 needs two bytes
	p := &Publish{TopicName: "t", Payload: bytes.Repeat([]byte{0xAB}, 200)}
	b, err := Encode(p)
	require.NoError(t, err)
	require.Equal(t, []byte{0x30, 0xCB, 0x01}, b[:3])

	decoded, n, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, len(b), n)
	require.Equal(t, p, decoded)
}

func TestCodecPublishInvalidPacket(t *testing.T) {
	tests := map[string][]byte{
		"QoS 3":               {0x36, 0x05, 0x00, 0x01, 't', 0x00, 0x01},
		"DUP with QoS 0":      {0x38, 0x03, 0x00, 0x01, 't'},
		"packet identifier 0": {0x32, 0x05, 0x00, 0x01, 't', 0x00, 0x00},
		"truncated topic":     {0x30, 0x03, 0x00, 0x05, 't'},
		"invalid UTF-8 topic": {0x30, 0x04, 0x00, 0x02, 0xC3, 0x28},
	}

	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(encoded)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected a DecodeError, got %v", err)
			assert.Equal(t, packettype.PUBLISH, decodeErr.Type)
		})
	}
}

func TestCodecPublishEncodeErrors(t *testing.T) {
	_, err := Encode(&Publish{QoSLevel: 3, TopicName: "t", PacketID: 1})
	assert.ErrorIs(t, err, ErrInvalidQoS)

	_, err = Encode(&Publish{QoSLevel: 1, TopicName: "t"})
	assert.Error(t, err, "QoS 1 without packet identifier")

	_, err = Encode(&Publish{DUPFlag: true, TopicName: "t"})
	assert.Error(t, err, "QoS 0 with DUP")
}

func TestPublishClone(t *testing.T) {
	p := &Publish{QoSLevel: 1, TopicName: "t", PacketID: 3, Payload: []byte("abc")}
	c := p.clone()
	require.Equal(t, p, c)

	c.Payload[0] = 'x'
	require.Equal(t, []byte("abc"), p.Payload)
}
