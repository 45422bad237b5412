// Package metrics exposes the xproto driver's Prometheus instrumentation:
// connect attempts and failovers, authentication outcomes, frame throughput,
// and stream durations. Adapted from the teacher's internal/metrics.Collector
// (a custom registry, registered once in New(), *Vec metrics keyed by a
// dimension — here by endpoint/mechanism instead of tenant).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the xproto driver.
type Collector struct {
	Registry *prometheus.Registry

	connectAttempts  *prometheus.CounterVec
	connectFailovers *prometheus.CounterVec
	connectDuration  *prometheus.HistogramVec

	authOutcomes *prometheus.CounterVec

	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec

	streamDuration *prometheus.HistogramVec
	streamRows     *prometheus.CounterVec

	endpointAvailable *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics using a custom registry.
// Safe to call multiple times (e.g. in tests) — each call creates an
// independent registry that doesn't conflict with others.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		connectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xproto_connect_attempts_total",
				Help: "Connect attempts per endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		connectFailovers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xproto_connect_failovers_total",
				Help: "Number of times the router marked an endpoint unavailable after a transient dial failure",
			},
			[]string{"endpoint"},
		),
		connectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xproto_connect_duration_seconds",
				Help:    "Duration of a full Connect call, including failover",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"outcome"},
		),
		authOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xproto_auth_outcomes_total",
				Help: "Authentication attempts by mechanism and outcome",
			},
			[]string{"mechanism", "outcome"},
		),
		framesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xproto_frames_sent_total",
				Help: "Frames written to the wire by message type",
			},
			[]string{"type"},
		),
		framesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xproto_frames_received_total",
				Help: "Frames read from the wire by message type",
			},
			[]string{"type"},
		),
		streamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xproto_stream_duration_seconds",
				Help:    "Duration of a ReplyStream from Submit to terminal frame",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
			},
			[]string{"outcome"},
		),
		streamRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xproto_stream_rows_total",
				Help: "Row items yielded by ReplyStream.Next",
			},
			[]string{},
		),
		endpointAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "xproto_endpoint_available",
				Help: "Health checker's current view of endpoint availability (1=available, 0=unavailable)",
			},
			[]string{"endpoint"},
		),
	}

	reg.MustRegister(
		c.connectAttempts,
		c.connectFailovers,
		c.connectDuration,
		c.authOutcomes,
		c.framesSent,
		c.framesReceived,
		c.streamDuration,
		c.streamRows,
		c.endpointAvailable,
	)

	return c
}

// ConnectAttempt records one dial attempt against an endpoint and whether
// the dial succeeded.
func (c *Collector) ConnectAttempt(endpoint string, ok bool) {
	c.connectAttempts.WithLabelValues(endpoint, outcomeLabel(ok)).Inc()
}

// ConnectFailover records the router marking an endpoint unavailable after
// a transient dial failure and moving on to the next candidate.
func (c *Collector) ConnectFailover(endpoint string) {
	c.connectFailovers.WithLabelValues(endpoint).Inc()
}

// ConnectCompleted observes the total duration of a Connect call.
func (c *Collector) ConnectCompleted(d time.Duration, ok bool) {
	c.connectDuration.WithLabelValues(outcomeLabel(ok)).Observe(d.Seconds())
}

// AuthOutcome records an authentication attempt's outcome for a mechanism.
func (c *Collector) AuthOutcome(mechanism string, ok bool) {
	c.authOutcomes.WithLabelValues(mechanism, outcomeLabel(ok)).Inc()
}

// FrameSent increments the sent-frame counter for a message type name.
func (c *Collector) FrameSent(msgType string) {
	c.framesSent.WithLabelValues(msgType).Inc()
}

// FrameReceived increments the received-frame counter for a message type name.
func (c *Collector) FrameReceived(msgType string) {
	c.framesReceived.WithLabelValues(msgType).Inc()
}

// StreamCompleted observes a ReplyStream's total duration.
func (c *Collector) StreamCompleted(d time.Duration, ok bool) {
	c.streamDuration.WithLabelValues(outcomeLabel(ok)).Observe(d.Seconds())
}

// StreamRow increments the row counter.
func (c *Collector) StreamRow() {
	c.streamRows.WithLabelValues().Inc()
}

// SetEndpointAvailable sets the availability gauge for one endpoint.
func (c *Collector) SetEndpointAvailable(endpoint string, available bool) {
	val := 0.0
	if available {
		val = 1.0
	}
	c.endpointAvailable.WithLabelValues(endpoint).Set(val)
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
