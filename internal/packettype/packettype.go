package packettype

// PacketType MQTT control packet type
// MQTT 3.1.1, 2.2.1
type PacketType byte

// MQTT Control packet type
const (
	RESERVED    PacketType = 0
	CONNECT     PacketType = 1
	CONNACK     PacketType = 2
	PUBLISH     PacketType = 3
	PUBACK      PacketType = 4
	PUBREC      PacketType = 5
	PUBREL      PacketType = 6
	PUBCOMP     PacketType = 7
	SUBSCRIBE   PacketType = 8
	SUBACK      PacketType = 9
	UNSUBSCRIBE PacketType = 10
	UNSUBACK    PacketType = 11
	PINGREQ     PacketType = 12
	PINGRESP    PacketType = 13
	DISCONNECT  PacketType = 14
)

var packetTypeText = map[PacketType]string{
	RESERVED:    "RESERVED",
	CONNECT:     "CONNECT",
	CONNACK:     "CONNACK",
	PUBLISH:     "PUBLISH",
	PUBACK:      "PUBACK",
	PUBREC:      "PUBREC",
	PUBREL:      "PUBREL",
	PUBCOMP:     "PUBCOMP",
	SUBSCRIBE:   "SUBSCRIBE",
	SUBACK:      "SUBACK",
	UNSUBSCRIBE: "UNSUBSCRIBE",
	UNSUBACK:    "UNSUBACK",
	PINGREQ:     "PINGREQ",
	PINGRESP:    "PINGRESP",
	DISCONNECT:  "DISCONNECT",
}

// Text returns a text for the MQTT control packet type. Returns the empty
// string if the control packet type is unknown.
func (ct PacketType) Text() string {
	return packetTypeText[ct]
}

// String implements fmt.Stringer
func (ct PacketType) String() string {
	if s, ok := packetTypeText[ct]; ok {
		return s
	}
	return "UNKNOWN"
}

// FromHeader splits the first byte of a fixed header into
// the packet type and the 4 bit flags
func FromHeader(byte0 byte) (PacketType, byte) {
	return PacketType(byte0 >> 4), byte0 & 0x0F
}

// Header returns the first byte of a fixed header
func (ct PacketType) Header(flags byte) byte {
	return byte(ct)<<4 | flags&0x0F
}

// ValidFlags reports whether the fixed header flags are permitted
// for the packet type. MQTT 3.1.1, 2.2.2
func (ct PacketType) ValidFlags(flags byte) bool {
	switch ct {
	case PUBLISH:
		// QoS 3 is reserved, QoS 0 must not carry DUP
		qos := (flags >> 1) & 0x03
		if qos == 3 {
			return false
		}
		return !(qos == 0 && flags&0x08 != 0)
	case PUBREL, SUBSCRIBE, UNSUBSCRIBE:
		return flags == 0x02
	case CONNECT, CONNACK, PUBACK, PUBREC, PUBCOMP, SUBACK,
		UNSUBACK, PINGREQ, PINGRESP, DISCONNECT:
		return flags == 0
	}
	return false
}
