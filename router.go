package xproto

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"
)

// routerSnapshot is an immutable point-in-time view of endpoint
// availability. Stored in atomic.Value for lock-free reads on the
// connect hot path — the same pattern the teacher's router.Router uses
// for its tenant table, here applied to endpoint unavailability instead
// of tenant config.
type routerSnapshot struct {
	ordered     []Endpoint      // priority-descending, ties broken by original list order
	unavailable map[int]bool    // index into ordered
}

// Router holds a priority-ordered endpoint list and drives connect
// attempts against it, remembering transient unavailability between
// attempts (spec.md §4.6).
type Router struct {
	snap atomic.Value // *routerSnapshot
	wmu  sync.Mutex   // serializes unavailability mutations
}

// NewRouter builds a Router from a validated endpoint list. Endpoints are
// sorted priority-descending; an implicit (nil-priority) list keeps its
// original order, since implicit priority follows list position
// (spec.md §3).
func NewRouter(endpoints []Endpoint) (*Router, error) {
	if err := ValidateEndpoints(endpoints); err != nil {
		return nil, err
	}

	ordered := make([]Endpoint, len(endpoints))
	copy(ordered, endpoints)

	if len(ordered) > 0 && ordered[0].Priority != nil {
		sort.SliceStable(ordered, func(i, j int) bool {
			return *ordered[i].Priority > *ordered[j].Priority
		})
	}

	r := &Router{}
	r.snap.Store(&routerSnapshot{
		ordered:     ordered,
		unavailable: make(map[int]bool),
	})
	return r, nil
}

func (r *Router) load() *routerSnapshot {
	return r.snap.Load().(*routerSnapshot)
}

// markUnavailable clones the current snapshot and marks one endpoint
// index unavailable. Must not be called with wmu held by the caller.
func (r *Router) markUnavailable(idx int) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	cur := r.load()
	next := &routerSnapshot{
		ordered:     cur.ordered,
		unavailable: make(map[int]bool, len(cur.unavailable)+1),
	}
	for k, v := range cur.unavailable {
		next.unavailable[k] = v
	}
	next.unavailable[idx] = true
	r.snap.Store(next)
}

// clearUnavailable resets every endpoint to available, so the next
// Connect call again considers the full list from the top (spec.md
// §4.6 step 4).
func (r *Router) clearUnavailable() {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	cur := r.load()
	r.snap.Store(&routerSnapshot{
		ordered:     cur.ordered,
		unavailable: make(map[int]bool),
	})
}

// HandshakeFunc turns a freshly dialed stream into a Ready Session by
// driving the Protocol State Machine. It is a parameter of Router.Connect
// (rather than a Router field) so tests can substitute a fake handshake
// without a real X Plugin server on the other end.
type HandshakeFunc func(ctx context.Context, ep Endpoint, conn net.Conn) (*Session, error)

// Connect runs the failover algorithm of spec.md §4.6: enumerate
// endpoints priority-descending, skip unavailable ones, dial each
// candidate, and hand the first successfully acquired stream to
// handshake. A transient dial failure marks that endpoint unavailable
// and continues; handshake failures propagate as-is without touching
// availability state (they are not routing problems). Exhausting the
// list clears all marks and fails with ErrNoRoutersAvailable.
func (r *Router) Connect(ctx context.Context, props SessionProperties, handshake HandshakeFunc) (*Session, error) {
	snap := r.load()

	for idx, ep := range snap.ordered {
		if snap.unavailable[idx] {
			continue
		}

		conn, err := props.Dialer.Dial(ctx, ep, props)
		if err != nil {
			te := &TransportError{Op: "dial", Err: err}
			if props.Metrics != nil {
				props.Metrics.ConnectAttempt(endpointLabel(ep), false)
			}
			if IsTransient(te) {
				slog.Warn("endpoint unavailable", "host", ep.Host, "port", ep.Port, "err", err)
				if props.Metrics != nil {
					props.Metrics.ConnectFailover(endpointLabel(ep))
				}
				r.markUnavailable(idx)
				continue
			}
			return nil, te
		}
		if props.Metrics != nil {
			props.Metrics.ConnectAttempt(endpointLabel(ep), true)
		}

		sess, err := handshake(ctx, ep, conn)
		if err != nil {
			// Negotiating/Securing/Authenticating failures are not
			// routing problems: they propagate without marking the
			// endpoint unavailable (spec.md §4.6 step 3).
			return nil, err
		}
		return sess, nil
	}

	r.clearUnavailable()
	return nil, ErrNoRoutersAvailable
}

// endpointLabel is the metrics/diagnostics identity of an Endpoint —
// matches internal/health.endpointKey's socket-path-or-host:port shape so
// the two packages' "endpoint" label values line up in Prometheus.
func endpointLabel(ep Endpoint) string {
	if ep.SocketPath != "" {
		return ep.SocketPath
	}
	return fmt.Sprintf("%s:%d", ep.Host, ep.Port)
}

// Endpoints returns the priority-ordered endpoint list, for diagnostics.
func (r *Router) Endpoints() []Endpoint {
	snap := r.load()
	out := make([]Endpoint, len(snap.ordered))
	copy(out, snap.ordered)
	return out
}
