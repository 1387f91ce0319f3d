package mqtt

import (
	"fmt"

	"github.com/srishina/mqtt311/internal/mqttutil"
)

// ConnectionState handshake state of a session
type ConnectionState byte

const (
	Disconnected ConnectionState = iota
	ConnectSent
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case ConnectSent:
		return "connect sent"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// transition what the session has to do after an inbound packet
type transition struct {
	// reply is sent back to the broker
	reply Packet
	// connack ends the handshake, refused is set when it was rejected
	connack *ConnAck
	refused error
	// acked outbound publish that reached its terminal acknowledgement
	acked *Publish
	// subacked completes the pending subscribe with the same identifier
	subacked *SubAck
	// delivered application message received from the broker
	delivered *Publish
}

// protocolState transport agnostic client side MQTT state. It never
// performs I/O: callers send the packets it returns. Not safe for
// concurrent use.
type protocolState struct {
	state      ConnectionState
	pids       *mqttutil.PIDGenerator
	store      *inflightStore
	subscribes map[uint16]*Subscribe
}

func newProtocolState() *protocolState {
	return &protocolState{
		state:      Disconnected,
		pids:       mqttutil.NewPIDGenerator(),
		store:      newInflightStore(),
		subscribes: make(map[uint16]*Subscribe),
	}
}

func violation(pt PacketType, id uint16, format string, args ...interface{}) error {
	return &ProtocolViolationError{Type: pt, PacketID: id, Reason: fmt.Sprintf(format, args...)}
}

func (ps *protocolState) connect(c *Connect) (Packet, error) {
	if ps.state != Disconnected {
		return nil, fmt.Errorf("%w: CONNECT while %s", ErrInvalidState, ps.state)
	}
	// 3.1.3.1
	if len(c.ClientID) == 0 && !c.CleanSession {
		return nil, ErrInvalidClientID
	}
	ps.state = ConnectSent
	return c, nil
}

func (ps *protocolState) publish(p *Publish) (Packet, error) {
	if ps.state != Connected {
		return nil, ErrNotConnected
	}
	if p.QoSLevel > 2 {
		return nil, ErrInvalidQoS
	}
	if err := mqttutil.ValidatePublishTopic(p.TopicName); err != nil {
		return nil, err
	}

	if p.QoSLevel == 0 {
		p.PacketID = 0
		p.DUPFlag = false
		return p, nil
	}

	if p.PacketID == 0 {
		p.PacketID = ps.pids.NextID()
		if p.PacketID == 0 {
			return nil, ErrPacketIDExhausted
		}
	} else if !ps.pids.Reserve(p.PacketID) {
		return nil, fmt.Errorf("%w: %d", ErrPacketIDInUse, p.PacketID)
	}

	ps.store.insert(outbound, p, initialInFlightState(p.QoSLevel))
	return p, nil
}

// republish sends an unacknowledged publish of an earlier connection again
func (ps *protocolState) republish(p *Publish) (Packet, error) {
	if p.QoSLevel == 0 || p.PacketID == 0 {
		return nil, fmt.Errorf("%w: only QoS 1 and 2 publishes with a packet identifier can be retransmitted", ErrInvalidQoS)
	}
	p.DUPFlag = true
	return ps.publish(p)
}

func (ps *protocolState) subscribe(s *Subscribe) (Packet, error) {
	if ps.state != Connected {
		return nil, ErrNotConnected
	}
	if len(s.Subscriptions) == 0 {
		return nil, ErrNoSubscriptions
	}
	for _, subscription := range s.Subscriptions {
		if err := mqttutil.ValidateSubscribeTopic(subscription.TopicFilter); err != nil {
			return nil, err
		}
		if subscription.QoSLevel > 2 {
			return nil, ErrInvalidQoS
		}
	}

	s.PacketID = ps.pids.NextID()
	if s.PacketID == 0 {
		return nil, ErrPacketIDExhausted
	}
	ps.subscribes[s.PacketID] = s
	return s, nil
}

// abandon reverts a request that could not be encoded
func (ps *protocolState) abandon(pkt Packet) {
	switch p := pkt.(type) {
	case *Connect:
		ps.state = Disconnected
	case *Publish:
		if p.QoSLevel > 0 {
			ps.release(p.PacketID)
		}
	case *Subscribe:
		delete(ps.subscribes, p.PacketID)
		ps.pids.FreeID(p.PacketID)
	}
}

// receive applies an inbound packet
func (ps *protocolState) receive(pkt Packet) (transition, error) {
	switch ps.state {
	case ConnectSent:
		connack, ok := pkt.(*ConnAck)
		if !ok {
			return transition{}, violation(pkt.Type(), 0, "received before CONNACK")
		}
		return ps.connAckHandler(connack), nil
	case Connected:
		return ps.process(pkt)
	}
	return transition{}, violation(pkt.Type(), 0, "received while %s", ps.state)
}

func (ps *protocolState) connAckHandler(connack *ConnAck) transition {
	if connack.ReturnCode != ConnAckReturnCodeAccepted {
		ps.state = Disconnected
		return transition{connack: connack, refused: &ConnectionRefusedError{Code: connack.ReturnCode}}
	}
	ps.state = Connected
	return transition{connack: connack}
}

func (ps *protocolState) process(pkt Packet) (transition, error) {
	switch p := pkt.(type) {
	case *Publish:
		return ps.publishHandler(p), nil
	case *PubAck:
		return ps.pubAckHandler(p)
	case *PubRec:
		return ps.pubRecHandler(p)
	case *PubRel:
		return ps.pubRelHandler(p)
	case *PubComp:
		return ps.pubCompHandler(p)
	case *SubAck:
		return ps.subAckHandler(p)
	case *PingResp:
		return transition{}, nil
	}
	return transition{}, violation(pkt.Type(), 0, "not expected from a broker while connected")
}

// publishHandler inbound application message. QoS 2 messages are handed
// out once the broker releases them with PUBREL.
func (ps *protocolState) publishHandler(publish *Publish) transition {
	switch publish.QoSLevel {
	case 1:
		return transition{reply: &PubAck{PacketID: publish.PacketID}, delivered: publish}
	case 2:
		if ps.store.get(inbound, publish.PacketID) == nil {
			ps.store.insert(inbound, publish, AwaitingPubRel)
		}
		return transition{reply: &PubRec{PacketID: publish.PacketID}}
	}
	return transition{delivered: publish}
}

func (ps *protocolState) pubAckHandler(puback *PubAck) (transition, error) {
	entry := ps.store.get(outbound, puback.PacketID)
	if entry == nil || entry.state != AwaitingPubAck {
		return transition{}, ps.unexpectedAck(puback.Type(), puback.PacketID, entry)
	}
	ps.release(puback.PacketID)
	return transition{acked: entry.publish}, nil
}

func (ps *protocolState) pubRecHandler(pubrec *PubRec) (transition, error) {
	entry := ps.store.get(outbound, pubrec.PacketID)
	if entry == nil || entry.state != AwaitingPubRec {
		return transition{}, ps.unexpectedAck(pubrec.Type(), pubrec.PacketID, entry)
	}
	entry.state = AwaitingPubComp
	return transition{reply: &PubRel{PacketID: pubrec.PacketID}}, nil
}

func (ps *protocolState) pubRelHandler(pubrel *PubRel) (transition, error) {
	entry := ps.store.get(inbound, pubrel.PacketID)
	if entry == nil {
		return transition{}, violation(pubrel.Type(), pubrel.PacketID, "no QoS 2 message awaiting release")
	}
	ps.store.delete(inbound, pubrel.PacketID)
	return transition{reply: &PubComp{PacketID: pubrel.PacketID}, delivered: entry.publish}, nil
}

func (ps *protocolState) pubCompHandler(pubcomp *PubComp) (transition, error) {
	entry := ps.store.get(outbound, pubcomp.PacketID)
	if entry == nil || entry.state != AwaitingPubComp {
		return transition{}, ps.unexpectedAck(pubcomp.Type(), pubcomp.PacketID, entry)
	}
	ps.release(pubcomp.PacketID)
	return transition{acked: entry.publish}, nil
}

func (ps *protocolState) subAckHandler(suback *SubAck) (transition, error) {
	s, ok := ps.subscribes[suback.PacketID]
	if !ok {
		return transition{}, violation(suback.Type(), suback.PacketID, "no SUBSCRIBE awaiting acknowledgement")
	}
	if len(suback.ReturnCodes) != len(s.Subscriptions) {
		return transition{}, violation(suback.Type(), suback.PacketID,
			"%d return codes for %d subscriptions", len(suback.ReturnCodes), len(s.Subscriptions))
	}
	delete(ps.subscribes, suback.PacketID)
	ps.pids.FreeID(suback.PacketID)
	return transition{subacked: suback}, nil
}

func (ps *protocolState) unexpectedAck(pt PacketType, id uint16, entry *inFlightPublish) error {
	if entry == nil {
		return violation(pt, id, "no matching in-flight PUBLISH")
	}
	return violation(pt, id, "in-flight PUBLISH is %s", entry.state)
}

func (ps *protocolState) release(id uint16) {
	ps.store.delete(outbound, id)
	ps.pids.FreeID(id)
}

// closed moves to Disconnected and discards every in-flight entry. The
// unacknowledged outbound publishes and subscribes are returned.
func (ps *protocolState) closed() ([]*inFlightPublish, []*Subscribe) {
	ps.state = Disconnected
	pending := ps.store.drain()

	var subscribes []*Subscribe
	for _, s := range ps.subscribes {
		subscribes = append(subscribes, s)
	}
	ps.subscribes = make(map[uint16]*Subscribe)
	ps.pids.Reset()
	return pending, subscribes
}

// inFlight number of outbound publishes and subscribes awaiting acknowledgement
func (ps *protocolState) inFlight() int {
	return ps.store.count(outbound) + len(ps.subscribes)
}
