package mqtt

import (
	"io"

	"github.com/srishina/mqtt311/internal/packettype"
)

// Disconnect MQTT DISCONNECT control packet, the last
// packet a client sends before closing the connection
type Disconnect struct {
}

// Type the packet type
func (d *Disconnect) Type() PacketType { return packettype.DISCONNECT }

func (d *Disconnect) encode(w io.Writer) error {
	_, err := w.Write([]byte{packettype.DISCONNECT.Header(0), 0})
	return err
}

func (d *Disconnect) decode(r io.Reader, len uint32) error {
	return nil
}
