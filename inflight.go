package mqtt

import (
	"sort"
)

// InFlightState acknowledgement stage of a QoS 1 or QoS 2 publish
type InFlightState byte

const (
	AwaitingPubAck InFlightState = iota + 1
	AwaitingPubRec
	AwaitingPubRel
	AwaitingPubComp
)

var inFlightStateText = map[InFlightState]string{
	AwaitingPubAck:  "awaiting PUBACK",
	AwaitingPubRec:  "awaiting PUBREC",
	AwaitingPubRel:  "awaiting PUBREL",
	AwaitingPubComp: "awaiting PUBCOMP",
}

func (s InFlightState) String() string {
	if text, ok := inFlightStateText[s]; ok {
		return text
	}
	return "unknown"
}

// initialInFlightState state of a freshly sent publish
func initialInFlightState(qos byte) InFlightState {
	if qos == 1 {
		return AwaitingPubAck
	}
	return AwaitingPubRec
}

type inFlightPublish struct {
	publish *Publish
	state   InFlightState
}

const (
	inbound  = 1 << iota
	outbound = 1 << iota
)

func merge(pid uint16, dir uint16) uint32 {
	return (uint32(dir) << 16) + uint32(pid)
}

func split(key uint32) (uint16, uint16) {
	return uint16(key >> 16), uint16(key & 0x0000FFFF)
}

// inflightStore publishes awaiting acknowledgement, keyed by direction and
// packet identifier. Owned by a single protocolState, not synchronised.
type inflightStore struct {
	messages map[uint32]*inFlightPublish
}

func newInflightStore() *inflightStore {
	return &inflightStore{messages: make(map[uint32]*inFlightPublish)}
}

func (ms *inflightStore) insert(dir uint16, pkt *Publish, state InFlightState) {
	ms.messages[merge(pkt.PacketID, dir)] = &inFlightPublish{publish: pkt, state: state}
}

func (ms *inflightStore) get(dir uint16, pid uint16) *inFlightPublish {
	return ms.messages[merge(pid, dir)]
}

func (ms *inflightStore) delete(dir uint16, pid uint16) {
	delete(ms.messages, merge(pid, dir))
}

// count number of entries in one direction
func (ms *inflightStore) count(dir uint16) int {
	n := 0
	for key := range ms.messages {
		if d, _ := split(key); d == dir {
			n++
		}
	}
	return n
}

// drain removes every entry and returns the outbound ones ordered
// by packet identifier
func (ms *inflightStore) drain() []*inFlightPublish {
	var pending []*inFlightPublish
	for key, v := range ms.messages {
		if d, _ := split(key); d == outbound {
			pending = append(pending, v)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].publish.PacketID < pending[j].publish.PacketID
	})
	ms.messages = make(map[uint32]*inFlightPublish)
	return pending
}
