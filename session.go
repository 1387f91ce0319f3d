package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/srishina/mqtt311/internal/mqttutil"
	"github.com/srishina/mqtt311/internal/packettype"
)

const readBufferSize = 4096

// MessageHandler callback that is invoked when a PUBLISH from the
// broker is ready for delivery. QoS 2 messages are delivered once,
// after the broker released them.
type MessageHandler func(*Publish)

// sessionOptions contains configurable settings for a session
type sessionOptions struct {
	logger                   *log.Entry
	metrics                  *Metrics
	messageHandler           MessageHandler
	closeOnProtocolViolation bool
	maxPacketSize            int
}

func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		logger: log.WithField("component", "mqtt"),
	}
}

// SessionOption ...
type SessionOption func(*sessionOptions) error

// WithLogger entry used for all session logging
func WithLogger(logger *log.Entry) SessionOption {
	return func(o *sessionOptions) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithMetrics records packet and acknowledgement metrics
func WithMetrics(m *Metrics) SessionOption {
	return func(o *sessionOptions) error {
		o.metrics = m
		return nil
	}
}

// WithMessageHandler callback for messages published by the broker
func WithMessageHandler(handler MessageHandler) SessionOption {
	return func(o *sessionOptions) error {
		o.messageHandler = handler
		return nil
	}
}

// WithCloseOnProtocolViolation closes the session on the first inbound
// packet that does not fit the session state. By default the packet is
// dropped and reported.
func WithCloseOnProtocolViolation(enabled bool) SessionOption {
	return func(o *sessionOptions) error {
		o.closeOnProtocolViolation = enabled
		return nil
	}
}

// WithMaxPacketSize rejects inbound packets larger than size bytes
// including the fixed header, 0 means no limit
func WithMaxPacketSize(size int) SessionOption {
	return func(o *sessionOptions) error {
		if size < 0 {
			return fmt.Errorf("invalid maximum packet size %d", size)
		}
		o.maxPacketSize = size
		return nil
	}
}

// Session drives the MQTT client protocol over a byte stream. The
// caller provides the transport: outbound packets are written to rw and
// inbound bytes are passed to OnInboundBytes, or read from rw by Serve.
// Every processing step is serialised, a session can be shared between
// goroutines.
type Session struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	options sessionOptions
	log     *log.Entry
	ps      *protocolState
	buf     []byte

	connectToken    *ConnectToken
	ongoingRequests map[uint16]*PublishToken
	subscribeTokens map[uint16]*SubscribeToken

	closed   bool
	closeErr error
}

// NewSession creates a session in the Disconnected state that
// exchanges packets over rw
func NewSession(rw io.ReadWriter, opt ...SessionOption) *Session {
	opts := defaultSessionOptions()
	for _, o := range opt {
		if err := o(&opts); err != nil {
			opts.logger.Warnf("Ignoring session option: %v", err)
		}
	}

	return &Session{
		rw:              rw,
		options:         opts,
		log:             opts.logger,
		ps:              newProtocolState(),
		ongoingRequests: make(map[uint16]*PublishToken),
		subscribeTokens: make(map[uint16]*SubscribeToken),
	}
}

// State current connection state
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ps.state
}

// InFlight number of publishes and subscribes awaiting acknowledgement
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ps.inFlight()
}

// Connect sends the CONNECT packet. The returned token completes when the
// broker answered with CONNACK.
func (s *Session) Connect(c *Connect) (*ConnectToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	pkt, err := s.ps.connect(c)
	if err != nil {
		return nil, err
	}

	if err := s.request(pkt); err != nil {
		return nil, err
	}
	tok := newConnectToken()
	s.connectToken = tok
	s.log.WithField("client_id", c.ClientID).Debug("CONNECT sent")
	return tok, nil
}

// Publish sends payload to topic. The payload is copied.
func (s *Session) Publish(topic string, payload []byte, qos byte) (*PublishToken, error) {
	p := &Publish{TopicName: topic, QoSLevel: qos}
	if len(payload) > 0 {
		p.Payload = append([]byte(nil), payload...)
	}
	return s.publish(p, false)
}

// PublishMessage sends a copy of p. A non zero PacketID is used as is
// and must not be in use by another in-flight operation.
func (s *Session) PublishMessage(p *Publish) (*PublishToken, error) {
	return s.publish(p.clone(), false)
}

// Republish sends p again with the DUP flag set and its original packet
// identifier, typically a message whose token completed with
// ErrDisconnected, on a new connection with a persistent session.
func (s *Session) Republish(p *Publish) (*PublishToken, error) {
	return s.publish(p.clone(), true)
}

func (s *Session) publish(p *Publish, dup bool) (*PublishToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	var pkt Packet
	var err error
	if dup {
		pkt, err = s.ps.republish(p)
	} else {
		pkt, err = s.ps.publish(p)
	}
	if err != nil {
		return nil, err
	}

	if err := s.request(pkt); err != nil {
		return nil, err
	}

	tok := newPublishToken(p)
	if p.QoSLevel > 0 {
		s.ongoingRequests[p.PacketID] = tok
	} else {
		tok.acked = true
		tok.complete(nil)
		s.options.metrics.completed(0)
	}
	s.options.metrics.setInFlight(s.ps.inFlight())
	return tok, nil
}

// Subscribe sends the SUBSCRIBE packet, a packet identifier is assigned
func (s *Session) Subscribe(sub *Subscribe) (*SubscribeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	pkt, err := s.ps.subscribe(sub)
	if err != nil {
		return nil, err
	}

	if err := s.request(pkt); err != nil {
		return nil, err
	}
	tok := newSubscribeToken()
	s.subscribeTokens[sub.PacketID] = tok
	s.options.metrics.setInFlight(s.ps.inFlight())
	return tok, nil
}

// Ping sends PINGREQ, keep alive scheduling is left to the caller
func (s *Session) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.ps.state != Connected {
		return ErrNotConnected
	}
	return s.request(&PingReq{})
}

// OnInboundBytes appends chunk to the inbound buffer and processes every
// complete packet in it. A chunk may hold several packets or only part
// of one. A *DecodeError means the stream can not be recovered and the
// caller should close the session. Protocol violations are reported after
// the remaining packets were processed.
func (s *Session) OnInboundBytes(chunk []byte) error {
	deliveries, err := s.onInboundBytes(chunk)
	if handler := s.options.messageHandler; handler != nil {
		for _, p := range deliveries {
			handler(p)
		}
	}
	return err
}

func (s *Session) onInboundBytes(chunk []byte) ([]*Publish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	s.buf = append(s.buf, chunk...)

	var deliveries []*Publish
	var violation error
	for len(s.buf) > 0 {
		if err := s.checkPacketSize(); err != nil {
			s.buf = s.buf[:0]
			s.options.metrics.decodeError()
			return deliveries, err
		}

		pkt, n, err := Decode(s.buf)
		if errors.Is(err, ErrDecodeIncomplete) {
			break
		}
		if err != nil {
			s.buf = s.buf[:0]
			s.options.metrics.decodeError()
			s.log.Errorf("Unable to decode inbound packet: %v", err)
			return deliveries, err
		}
		s.buf = append(s.buf[:0], s.buf[n:]...)

		delivered, err := s.process(pkt)
		if delivered != nil {
			deliveries = append(deliveries, delivered)
		}
		if err != nil {
			if !errors.Is(err, ErrProtocolViolation) {
				s.shutdown(err)
				return deliveries, err
			}
			s.options.metrics.violation(pkt.Type())
			s.log.Warn(err)
			if s.options.closeOnProtocolViolation {
				s.shutdown(err)
				return deliveries, err
			}
			if violation == nil {
				violation = err
			}
		}
		if s.closed {
			break
		}
	}
	return deliveries, violation
}

// checkPacketSize rejects a packet as soon as its header announces
// more than the configured maximum
func (s *Session) checkPacketSize() error {
	limit := s.options.maxPacketSize
	if limit == 0 || len(s.buf) < 2 {
		return nil
	}
	remainingLength, n, err := mqttutil.VarUint32FromBytes(s.buf[1:])
	if err != nil {
		// left to Decode
		return nil
	}
	if size := 1 + n + int(remainingLength); size > limit {
		pt, _ := packettype.FromHeader(s.buf[0])
		return newDecodeError(pt, "packet size %d exceeds the maximum of %d", size, limit)
	}
	return nil
}

// process applies one inbound packet. Returns the message to deliver, if any.
func (s *Session) process(pkt Packet) (*Publish, error) {
	s.options.metrics.packet(directionInbound, pkt.Type())
	s.log.Debugf("Received %s", pkt.Type())

	t, err := s.ps.receive(pkt)
	if err != nil {
		return nil, err
	}

	if t.reply != nil {
		if err := s.sendPacket(t.reply); err != nil {
			return nil, err
		}
	}

	if t.connack != nil {
		s.connAckHandler(t.connack, t.refused)
	}

	if t.acked != nil {
		if tok, ok := s.ongoingRequests[t.acked.PacketID]; ok {
			delete(s.ongoingRequests, t.acked.PacketID)
			tok.acked = true
			tok.complete(nil)
		}
		s.options.metrics.completed(t.acked.QoSLevel)
		s.options.metrics.setInFlight(s.ps.inFlight())
	}

	if t.subacked != nil {
		if tok, ok := s.subscribeTokens[t.subacked.PacketID]; ok {
			delete(s.subscribeTokens, t.subacked.PacketID)
			tok.suback = t.subacked
			tok.complete(nil)
		}
		s.options.metrics.setInFlight(s.ps.inFlight())
	}

	return t.delivered, nil
}

func (s *Session) connAckHandler(connack *ConnAck, refused error) {
	tok := s.connectToken
	s.connectToken = nil
	if tok != nil {
		tok.connack = connack
		tok.complete(refused)
	}

	if refused != nil {
		s.options.metrics.refused(connack.ReturnCode)
		s.log.Infof("Connection refused: %s", connack.ReturnCode.Desc())
		// 3.2.2.3 the broker closes the network connection
		s.shutdown(refused)
		return
	}
	s.log.WithField("session_present", connack.SessionPresent).Debug("Connected")
}

// Serve reads from the transport until it fails, ctx is done or the
// session is closed, and processes everything read. Decode and transport
// errors close the session. Returns nil after Close or Disconnect.
// Cancelling ctx can only interrupt the read when rw is an io.Closer.
func (s *Session) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.closeWithError(ctx.Err())
		case <-stop:
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, rerr := s.rw.Read(buf)
		if n > 0 {
			// violations were handled by the configured policy
			if err := s.OnInboundBytes(buf[:n]); err != nil && !errors.Is(err, ErrProtocolViolation) {
				s.closeWithError(err)
				return s.serveResult()
			}
		}

		if rerr != nil {
			if _, closed := s.closeReason(); !closed {
				s.log.Infof("Connection lost: %v", rerr)
				s.closeWithError(fmt.Errorf("%w: %v", ErrDisconnected, rerr))
			}
			return s.serveResult()
		}
	}
}

func (s *Session) serveResult() error {
	err, _ := s.closeReason()
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}

// Disconnect sends DISCONNECT when connected and closes the session
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	var err error
	if s.ps.state == Connected {
		err = s.sendPacket(&Disconnect{})
	}
	s.shutdown(ErrSessionClosed)
	return err
}

// Close closes the session without notifying the broker. In-flight
// operations complete with ErrDisconnected. Safe to call more than once.
func (s *Session) Close() error {
	s.closeWithError(ErrSessionClosed)
	return nil
}

func (s *Session) closeWithError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown(err)
}

func (s *Session) closeReason() (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr, s.closed
}

// shutdown must be called with mu held
func (s *Session) shutdown(reason error) {
	if s.closed {
		return
	}
	s.closed = true
	s.closeErr = reason

	pending, subscribes := s.ps.closed()
	for _, entry := range pending {
		if tok, ok := s.ongoingRequests[entry.publish.PacketID]; ok {
			tok.complete(ErrDisconnected)
		}
		s.log.Debugf("PUBLISH(%d) %s when the session closed", entry.publish.PacketID, entry.state)
	}
	for _, sub := range subscribes {
		if tok, ok := s.subscribeTokens[sub.PacketID]; ok {
			tok.complete(ErrDisconnected)
		}
	}
	if s.connectToken != nil {
		s.connectToken.complete(ErrDisconnected)
		s.connectToken = nil
	}
	s.ongoingRequests = make(map[uint16]*PublishToken)
	s.subscribeTokens = make(map[uint16]*SubscribeToken)
	s.buf = nil

	s.options.metrics.incomplete(len(pending))
	s.options.metrics.setInFlight(0)

	if closer, ok := s.rw.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.log.Debugf("Closing the transport: %v", err)
		}
	}
	s.log.Infof("Session closed: %v", reason)
}

// request sends a packet on behalf of the caller. A packet that can not
// be encoded leaves the session untouched, a failed write closes it.
// Must be called with mu held.
func (s *Session) request(pkt Packet) error {
	b, err := Encode(pkt)
	if err != nil {
		s.ps.abandon(pkt)
		return err
	}
	if err := s.write(pkt.Type(), b); err != nil {
		s.shutdown(err)
		return err
	}
	return nil
}

// sendPacket must be called with mu held
func (s *Session) sendPacket(pkt Packet) error {
	b, err := Encode(pkt)
	if err != nil {
		return err
	}
	return s.write(pkt.Type(), b)
}

func (s *Session) write(pt PacketType, b []byte) error {
	if _, err := s.rw.Write(b); err != nil {
		return fmt.Errorf("unable to send %s: %w", pt, err)
	}
	s.options.metrics.packet(directionOutbound, pt)
	s.log.Debugf("Sent %s", pt)
	return nil
}
