package mqttutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// MaxVarUint32 largest value a 4 byte variable integer can carry
	MaxVarUint32 = 268435455
	// MaxVarUint32Size maximum number of bytes of a variable integer
	MaxVarUint32Size = 4
)

var (
	ErrInvalidUTF8String    = errors.New("invalid or malformed utf-8 string")
	ErrVarUint32Overflow    = errors.New("variable integer exceeds 4 bytes")
	ErrVarUint32Incomplete  = errors.New("variable integer is incomplete")
	ErrVarUint32OutOfRange  = fmt.Errorf("variable integer larger than %d", MaxVarUint32)
	ErrStringLengthExceeded = errors.New("string is longer than 65535 bytes")
)

// DecodeByte read and returns the next byte from the reader
// returns EOF when no byte is available to read
func DecodeByte(r io.Reader) (byte, error) {
	var value [1]byte
	if _, err := io.ReadFull(r, value[:]); err != nil {
		return 0, err
	}

	return value[0], nil
}

// EncodeByte appends the byte val to the buffer
func EncodeByte(buf *bytes.Buffer, val byte) error {
	return buf.WriteByte(val)
}

func DecodeBigEndianUint16(r io.Reader) (uint16, error) {
	var value [2]byte
	if _, err := io.ReadFull(r, value[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(value[:]), nil
}

func EncodeBigEndianUint16(buf *bytes.Buffer, value uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], value)
	_, err := buf.Write(b[:])
	return err
}

// DecodeVarUint32 reads a variable byte integer from a blocking reader
func DecodeVarUint32(r io.Reader) (uint32, int, error) {
	var value uint32
	multiplier := uint32(1)

	for consumed := 1; consumed <= MaxVarUint32Size; consumed++ {
		encodedByte, err := DecodeByte(r)
		if err != nil {
			return 0, consumed - 1, err
		}

		value += uint32(encodedByte&0x7f) * multiplier
		if encodedByte&0x80 == 0 {
			return value, consumed, nil
		}
		multiplier *= 128
	}
	return 0, MaxVarUint32Size, ErrVarUint32Overflow
}

// VarUint32FromBytes decodes a variable byte integer from the start of buf
// without blocking. ErrVarUint32Incomplete is returned when buf ends before
// the last digit and fewer than 4 digits were seen.
func VarUint32FromBytes(buf []byte) (uint32, int, error) {
	var value uint32
	multiplier := uint32(1)

	for i := 0; i < MaxVarUint32Size; i++ {
		if i >= len(buf) {
			return 0, i, ErrVarUint32Incomplete
		}
		encodedByte := buf[i]
		value += uint32(encodedByte&0x7f) * multiplier
		if encodedByte&0x80 == 0 {
			return value, i + 1, nil
		}
		multiplier *= 128
	}
	return 0, MaxVarUint32Size, ErrVarUint32Overflow
}

func EncodedVarUint32Size(val uint32) uint32 {
	var size uint32
	for ok := true; ok; ok = !(val == 0) {
		val = val / 0x80
		size++
	}
	return size
}

// EncodeVarUint32 appends the minimal encoding of val
func EncodeVarUint32(buf *bytes.Buffer, val uint32) error {
	if val > MaxVarUint32 {
		return ErrVarUint32OutOfRange
	}

	for ok := true; ok; ok = !(val == 0) {
		encodedByte := val % 0x80
		val = val / 0x80

		if val > 0 {
			encodedByte |= 0x80
		}

		if err := buf.WriteByte(byte(encodedByte)); err != nil {
			return err
		}
	}

	return nil
}

func DecodeBinaryData(r io.Reader) ([]byte, int, error) {
	buflen, err := DecodeBigEndianUint16(r)
	if err != nil {
		return nil, 0, err
	}

	if buflen == 0 {
		return []byte{}, 2, nil
	}

	payload := make([]byte, buflen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, 2, err
	}
	return payload, int(buflen) + 2, nil
}

func EncodeBinaryData(buf *bytes.Buffer, val []byte) error {
	if len(val) > 65535 {
		return ErrStringLengthExceeded
	}
	if err := EncodeBigEndianUint16(buf, uint16(len(val))); err != nil {
		return err
	}
	_, err := buf.Write(val)
	return err
}

func DecodeUTF8String(r io.Reader) (string, int, error) {
	buf, nn, err := DecodeBinaryData(r)
	if err != nil {
		return "", nn, err
	}

	if !validateUTF8Chars(buf) {
		return "", nn, ErrInvalidUTF8String
	}

	return string(buf), nn, nil
}

func EncodeUTF8String(buf *bytes.Buffer, val string) error {
	if len(val) > 65535 {
		return ErrStringLengthExceeded
	}
	if !validateUTF8Chars([]byte(val)) {
		return ErrInvalidUTF8String
	}
	if err := EncodeBigEndianUint16(buf, uint16(len(val))); err != nil {
		return err
	}
	_, err := buf.WriteString(val)
	return err
}

// EncodedUTF8StringSize size of the length prefixed string
func EncodedUTF8StringSize(val string) uint32 {
	return uint32(2 + len(val))
}

// MQTT 3.1.1, 1.5.3: well formed UTF-8 without U+0000
func validateUTF8Chars(buf []byte) bool {
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size <= 1 {
			return false
		}

		if r == '\u0000' {
			return false
		}

		buf = buf[size:]
	}

	return true
}

func BoolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
