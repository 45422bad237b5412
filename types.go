package xproto

import (
	"context"
	"net"
)

// Direction marks which side of the wire a Message travels.
type Direction int

const (
	// DirectionClientToServer marks a request message.
	DirectionClientToServer Direction = iota
	// DirectionServerToClient marks a reply message.
	DirectionServerToClient
)

func (d Direction) String() string {
	if d == DirectionClientToServer {
		return "client->server"
	}
	return "server->client"
}

// Message is the decoded form of one frame: a type id plus its opaque
// payload. The core only interprets the payload for a small set of control
// messages (see isTerminal and the Dispatcher notice handling); everything
// else is passed through untouched.
type Message struct {
	Direction Direction
	Type      byte
	Payload   []byte
}

// Endpoint is one candidate server address with an optional priority.
// Priority is nil when the endpoint list is unprioritized (implicit
// priority follows list order); ValidateEndpoints rejects a list that
// mixes explicit and implicit priorities.
type Endpoint struct {
	Host       string
	Port       uint16
	SocketPath string
	Priority   *uint8
}

// Capabilities is the server's advertised capability map, decoded from a
// CapabilitiesGet reply and frozen (by convention — callers must not
// mutate it) once a Session reaches Ready.
type Capabilities map[string]any

// AuthMechanisms returns the server-advertised authentication.mechanisms
// list, or nil if the server didn't report one.
func (c Capabilities) AuthMechanisms() []string {
	raw, ok := c["authentication.mechanisms"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SessionProperties configures a single connect attempt.
type SessionProperties struct {
	User           string
	Password       string
	Schema         string
	SSL            bool
	SSLOptions     map[string]string
	Endpoints      []Endpoint
	AuthMechanisms []string // preference order; defaults to []string{"PLAIN"}
	Dialer         SocketFactory
	Metrics        MetricsSink
}

// MetricsSink receives best-effort instrumentation from the protocol
// core's hot paths: connect attempts and failovers from Router.Connect,
// authentication outcomes from the Protocol State Machine, and frame
// counts from Connection.Send/Receive. A nil MetricsSink disables
// instrumentation — every call site checks before calling, the same
// optional-dependency discipline the teacher's internal/health.Checker
// uses for its own narrow metricsSink. *metrics.Collector satisfies this
// interface without either package importing the other.
type MetricsSink interface {
	ConnectAttempt(endpoint string, ok bool)
	ConnectFailover(endpoint string)
	AuthOutcome(mechanism string, ok bool)
	FrameSent(msgType string)
	FrameReceived(msgType string)
}

// SocketFactory produces a duplex byte stream for an Endpoint. The core
// never inspects factory internals; it only distinguishes transient
// transport errors (see IsTransient) from everything else.
type SocketFactory interface {
	Dial(ctx context.Context, ep Endpoint, props SessionProperties) (net.Conn, error)
}
