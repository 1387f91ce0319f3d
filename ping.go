package mqtt

import (
	"io"

	"github.com/srishina/mqtt311/internal/packettype"
)

// PingReq MQTT PINGREQ control packet
type PingReq struct {
}

// Type the packet type
func (p *PingReq) Type() PacketType { return packettype.PINGREQ }

// encode encode MQTT PINGREQ packet
func (p *PingReq) encode(w io.Writer) error {
	_, err := w.Write([]byte{packettype.PINGREQ.Header(0), 0})
	return err
}

// decode decode MQTT PINGREQ packet
func (p *PingReq) decode(r io.Reader, len uint32) error {
	return nil
}

// PingResp MQTT PINGRESP control packet
type PingResp struct {
}

// Type the packet type
func (p *PingResp) Type() PacketType { return packettype.PINGRESP }

// encode encode MQTT PINGRESP packet
func (p *PingResp) encode(w io.Writer) error {
	_, err := w.Write([]byte{packettype.PINGRESP.Header(0), 0})
	return err
}

// decode decode MQTT PINGRESP packet
func (p *PingResp) decode(r io.Reader, len uint32) error {
	return nil
}
