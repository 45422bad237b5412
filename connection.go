package xproto

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"
)

// connState mirrors the teacher's pool.ConnState — a small closed set
// describing a wrapped net.Conn's lifecycle, guarded by the same
// mutex-around-state-only discipline (never held across I/O).
type connState int

const (
	connOpen connState = iota
	connPoisoned
	connClosed
)

// Connection owns one duplex byte stream exclusively and offers send/
// receive as the only I/O primitives (spec.md §4.2). It is not safe for
// concurrent use — a Session serializes access to it by construction of
// the Protocol State Machine, not by locking around I/O.
type Connection struct {
	mu      sync.Mutex
	state   connState
	conn    net.Conn
	dec     *Decoder
	tlsDone bool
	metrics MetricsSink
}

// NewConnection wraps a freshly dialed duplex stream. metrics may be nil.
func NewConnection(conn net.Conn, metrics MetricsSink) *Connection {
	return &Connection{
		conn:    conn,
		dec:     NewDecoder(MaxFrameSize),
		state:   connOpen,
		metrics: metrics,
	}
}

func (c *Connection) poison() {
	c.mu.Lock()
	if c.state == connOpen {
		c.state = connPoisoned
	}
	c.mu.Unlock()
}

func (c *Connection) isUsable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == connOpen
}

// Send encodes and writes one message atomically. On write failure the
// Connection is poisoned and all subsequent sends fail fast without
// attempting I/O, per spec.md §4.2.
func (c *Connection) Send(typeID byte, payload []byte) error {
	if !c.isUsable() {
		return &TransportError{Op: "write", Err: fmt.Errorf("connection poisoned")}
	}

	frame := EncodeFrame(typeID, payload)
	if _, err := c.conn.Write(frame); err != nil {
		c.poison()
		return &TransportError{Op: "write", Err: err}
	}
	if c.metrics != nil {
		c.metrics.FrameSent(MessageName(DirectionClientToServer, typeID))
	}
	return nil
}

// Receive reads until the Decoder yields one complete frame.
func (c *Connection) Receive() (Message, error) {
	if !c.isUsable() {
		return Message{}, &TransportError{Op: "read", Err: fmt.Errorf("connection poisoned")}
	}

	readBuf := make([]byte, 4096)
	for {
		typeID, payload, ok, err := c.dec.Next()
		if err != nil {
			c.poison()
			return Message{}, err
		}
		if ok {
			if c.metrics != nil {
				c.metrics.FrameReceived(MessageName(DirectionServerToClient, typeID))
			}
			return Message{Direction: DirectionServerToClient, Type: typeID, Payload: payload}, nil
		}

		n, err := c.conn.Read(readBuf)
		if n > 0 {
			c.dec.Feed(readBuf[:n])
		}
		if err != nil {
			c.poison()
			return Message{}, &TransportError{Op: "read", Err: err}
		}
	}
}

// Upgrade wraps the underlying stream in a TLS client connection and
// performs the handshake. It may be called exactly once. On failure the
// Connection transitions to poisoned and a *TLSError is returned for the
// caller (the Protocol State Machine) to bubble up. Grounded on the
// teacher's proxy/server.go TLS setup (crypto/tls, MinVersion TLS 1.2)
// but on the client side of the handshake.
func (c *Connection) Upgrade(cfg *tls.Config) error {
	c.mu.Lock()
	if c.tlsDone {
		c.mu.Unlock()
		return &TLSError{Err: fmt.Errorf("TLS already negotiated on this connection")}
	}
	if c.state != connOpen {
		c.mu.Unlock()
		return &TLSError{Err: fmt.Errorf("connection not open")}
	}
	conn := c.conn
	c.mu.Unlock()

	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	} else if cfg.MinVersion == 0 {
		clone := cfg.Clone()
		clone.MinVersion = tls.VersionTLS12
		cfg = clone
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		c.poison()
		return &TLSError{Err: err}
	}

	c.mu.Lock()
	c.conn = tlsConn
	c.tlsDone = true
	c.dec = NewDecoder(MaxFrameSize) // fresh buffer: no plaintext bytes may leak across the upgrade
	c.mu.Unlock()
	return nil
}

// Close half-closes the write side where supported, drains pending reads
// up to a bounded deadline, then releases the stream. Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.state = connClosed
	c.mu.Unlock()

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	drain := make([]byte, 4096)
	for {
		_, err := conn.Read(drain)
		if err != nil {
			break
		}
	}

	return conn.Close()
}
