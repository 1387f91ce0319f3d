package mqtt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/srishina/mqtt311/internal/packettype"
	"github.com/stretchr/testify/require"
)

func TestCodecSubAckPacket(t *testing.T) {
	encoded := []byte{0x90, 0x05,
		0x00, 0x0A, // packet identifier
		byte(SubAckReturnCodeGrantedQoS1),
		byte(SubAckReturnCodeGrantedQoS0),
		byte(SubAckReturnCodeFailure),
	}

	reader := bytes.NewBuffer(encoded)
	byte0, remainingLength, err := readFixedHeader(reader)
	require.NoError(t, err, "Decoding SUBACK fixed header returned error")
	require.Equal(t, packettype.SUBACK, packettype.PacketType(byte0>>4))

	s := SubAck{}
	require.NoError(t, s.decode(reader, remainingLength), "SubAck.decode returned an error")
	require.Equal(t, uint16(10), s.PacketID)
	require.Equal(t, []SubAckReturnCode{
		SubAckReturnCodeGrantedQoS1,
		SubAckReturnCodeGrantedQoS0,
		SubAckReturnCodeFailure,
	}, s.ReturnCodes)

	var buf bytes.Buffer
	require.NoError(t, s.encode(&buf), "SubAck.encode returned an error")
	require.Equal(t, encoded, buf.Bytes())
}

func TestCodecSubAckInvalidPacket(t *testing.T) {
	tests := map[string][]byte{
		"reserved return code": {0x90, 0x03, 0x00, 0x01, 0x03},
		"no return codes":      {0x90, 0x02, 0x00, 0x01},
	}

	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(encoded)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected a DecodeError, got %v", err)
			require.Equal(t, packettype.SUBACK, decodeErr.Type)
		})
	}
}

func TestSubAckReturnCodeText(t *testing.T) {
	require.Equal(t, "Failure", SubAckReturnCodeFailure.Text())
	require.Empty(t, SubAckReturnCode(0x03).Text())
}
