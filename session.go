package xproto

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// sessionState is the Protocol State Machine's state set (spec.md §4.4).
// Grounded on the teacher's health.Status / pool.ConnState idiom: a small
// closed enum with a String() method rather than a free-form string.
type sessionState int

const (
	stateFresh sessionState = iota
	stateNegotiating
	stateSecuring
	stateTLSHandshake
	stateAuthenticating
	stateAuthenticatingWait
	stateReady
	stateStreaming
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateFresh:
		return "Fresh"
	case stateNegotiating:
		return "Negotiating"
	case stateSecuring:
		return "Securing"
	case stateTLSHandshake:
		return "TlsHandshake"
	case stateAuthenticating:
		return "Authenticating"
	case stateAuthenticatingWait:
		return "AuthenticatingWait"
	case stateReady:
		return "Ready"
	case stateStreaming:
		return "Streaming"
	case stateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Inspection is the diagnostic snapshot returned by Session.Inspect.
type Inspection struct {
	DBUser string
	Host   string
	Port   uint16
}

// Session owns one active Connection, the negotiated ServerCapabilities,
// the authenticated identity, and the current Dispatcher state. A
// Session is created Fresh; Connect drives it to Ready; Close or any
// fatal error drives it to Closed, which is absorbing (spec.md §3, §4.4).
type Session struct {
	mu    sync.Mutex
	state sessionState

	conn *Connection
	caps Capabilities
	user string
	ep   Endpoint

	openStream bool // at most one ReplyStream open at a time (spec.md invariant)
}

// Connect selects an endpoint via a Router built from props.Endpoints,
// acquires a duplex stream from props.Dialer, and drives the Protocol
// State Machine through Negotiating, optional Securing/TlsHandshake, and
// Authenticating to Ready (spec.md §4.4, §4.6). The supplied context's
// deadline spans every failover attempt (spec.md §5).
func Connect(ctx context.Context, props SessionProperties) (*Session, error) {
	if props.Dialer == nil {
		props.Dialer = defaultSocketFactory{}
	}

	router, err := NewRouter(props.Endpoints)
	if err != nil {
		return nil, err
	}

	return router.Connect(ctx, props, func(ctx context.Context, ep Endpoint, conn net.Conn) (*Session, error) {
		return handshake(ctx, ep, conn, props)
	})
}

// handshake drives one acquired connection through the full state
// machine. Any failure here closes the connection before returning, so
// the byte stream is never leaked (spec.md §7 propagation policy).
func handshake(ctx context.Context, ep Endpoint, conn net.Conn, props SessionProperties) (*Session, error) {
	c := NewConnection(conn, props.Metrics)
	s := &Session{state: stateNegotiating, conn: c, user: props.User, ep: ep}

	caps, err := negotiateCapabilities(c)
	if err != nil {
		c.Close()
		s.state = stateClosed
		return nil, &ProtocolError{Err: err}
	}
	s.caps = caps

	if props.SSL {
		s.state = stateSecuring
		if err := secure(c, props); err != nil {
			c.Close()
			s.state = stateClosed
			return nil, err
		}

		s.state = stateTLSHandshake
		caps, err = negotiateCapabilities(c) // post-handshake capabilities, stored verbatim
		if err != nil {
			c.Close()
			s.state = stateClosed
			return nil, &ProtocolError{Err: err}
		}
		s.caps = caps
	}

	s.state = stateAuthenticating
	if err := authenticate(c, props, s.caps); err != nil {
		c.Close()
		s.state = stateClosed
		return nil, err
	}

	s.state = stateReady
	slog.Info("xproto session ready", "host", ep.Host, "port", ep.Port, "user", props.User)
	return s, nil
}

func negotiateCapabilities(c *Connection) (Capabilities, error) {
	if err := c.Send(TypeConCapabilitiesGet, nil); err != nil {
		return nil, err
	}
	msg, err := c.Receive()
	if err != nil {
		return nil, err
	}
	if msg.Type == TypeError {
		return nil, decodeErrorPayload(msg.Payload)
	}
	return decodeCapabilitiesPayload(msg.Payload)
}

func secure(c *Connection, props SessionProperties) error {
	setPayload := encodeCapabilitiesSetPayload(map[string]any{"tls": true})
	if err := c.Send(TypeConCapabilitiesSet, setPayload); err != nil {
		return err
	}
	msg, err := c.Receive()
	if err != nil {
		return err
	}
	if msg.Type != TypeOk {
		if msg.Type == TypeError {
			return &ProtocolError{Err: decodeErrorPayload(msg.Payload)}
		}
		return &ProtocolError{Err: fmt.Errorf("unexpected reply to CapabilitiesSet: %s", MessageName(DirectionServerToClient, msg.Type))}
	}

	cfg := tlsConfigFromOptions(props.SSLOptions)
	if err := c.Upgrade(cfg); err != nil {
		return err
	}
	return nil
}

func tlsConfigFromOptions(opts map[string]string) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if opts["insecure_skip_verify"] == "true" {
		cfg.InsecureSkipVerify = true
	}
	if name, ok := opts["server_name"]; ok {
		cfg.ServerName = name
	}
	return cfg
}

func authenticate(c *Connection, props SessionProperties, caps Capabilities) error {
	mechanisms := caps.AuthMechanisms()

	var auth Authenticator
	var err error
	if len(mechanisms) == 0 {
		// The server didn't advertise a mechanism list (spec.md §9's open
		// question about undocumented capability shape extends here): try
		// the client's preferred default rather than refuse outright.
		cands := authenticatorsFor(props)
		if len(cands) == 0 {
			return &AuthError{PreHandshake: true, Message: "no authenticator configured"}
		}
		auth = cands[0]
	} else {
		auth, err = selectAuthenticator(props, mechanisms)
		if err != nil {
			return err
		}
	}

	recordOutcome := func(ok bool) {
		if props.Metrics != nil {
			props.Metrics.AuthOutcome(auth.Name(), ok)
		}
	}

	initial := auth.InitialResponse(props)
	if err := c.Send(TypeSessAuthenticateStart, encodeAuthenticateStartPayload(auth.Name(), initial)); err != nil {
		return err
	}

	for {
		msg, err := c.Receive()
		if err != nil {
			return err
		}

		switch msg.Type {
		case TypeSessAuthenticateOk:
			recordOutcome(true)
			return nil
		case TypeSessAuthenticateContinue:
			resp, err := auth.ContinueResponse(msg.Payload)
			if err != nil {
				recordOutcome(false)
				return &AuthError{Message: err.Error()}
			}
			if err := c.Send(TypeSessAuthenticateContinue, resp); err != nil {
				return err
			}
		case TypeError:
			se := decodeErrorPayload(msg.Payload)
			recordOutcome(false)
			return &AuthError{Code: se.Code, SQLState: se.SQLState, Message: se.Message}
		default:
			recordOutcome(false)
			return &ProtocolError{Err: fmt.Errorf("unexpected reply during authentication: %s", MessageName(DirectionServerToClient, msg.Type))}
		}
	}
}

// Submit sends a request message and opens a ReplyStream for its reply
// sequence. Only one ReplyStream may be open at a time (spec.md
// invariant); calling Submit while one is open returns an error without
// sending anything.
func (s *Session) Submit(requestType byte, payload []byte) (*ReplyStream, error) {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.openStream {
		s.mu.Unlock()
		return nil, fmt.Errorf("xproto: a ReplyStream is already open on this session")
	}
	s.state = stateStreaming
	s.openStream = true
	s.mu.Unlock()

	if err := s.conn.Send(requestType, payload); err != nil {
		s.mu.Lock()
		s.state = stateClosed
		s.openStream = false
		s.mu.Unlock()
		return nil, &ConnectionLostError{Err: err}
	}

	return &ReplyStream{session: s, conn: s.conn}, nil
}

func (s *Session) onStreamTerminal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openStream = false
	if s.state != stateClosed {
		s.state = stateReady
	}
}

func (s *Session) onStreamError(err error) {
	s.mu.Lock()
	s.openStream = false
	s.state = stateClosed
	conn := s.conn
	s.mu.Unlock()

	conn.Close()
}

func (s *Session) applyStateChange(change sessionStateChange) {
	// Reserved for session-state mutations driven by Notice frames
	// (spec.md §4.5). The core has no session-state fields of its own to
	// mutate yet; higher layers observe the change via KindNotice items.
	_ = change
}

// Close half-closes the Connection, drains pending reads, and releases
// the stream. Idempotent; safe to call from any state.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosed
	s.openStream = false
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Inspect returns a diagnostic snapshot of the session.
func (s *Session) Inspect() Inspection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Inspection{DBUser: s.user, Host: s.ep.Host, Port: s.ep.Port}
}

// Capabilities returns the frozen, negotiated server capability map.
func (s *Session) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// IsClosed reports whether the session has reached the terminal Closed
// state.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosed
}
