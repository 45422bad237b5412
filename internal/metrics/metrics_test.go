package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	c := New()
	return c, c.Registry
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	g.Write(m)
	return m.GetGauge().GetValue()
}

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	c.Write(m)
	return m.GetCounter().GetValue()
}

func TestConnectAttempt(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ConnectAttempt("host-a:33060", true)
	c.ConnectAttempt("host-a:33060", false)
	c.ConnectAttempt("host-a:33060", false)

	if v := getCounterValue(c.connectAttempts.WithLabelValues("host-a:33060", "success")); v != 1 {
		t.Errorf("expected 1 success, got %v", v)
	}
	if v := getCounterValue(c.connectAttempts.WithLabelValues("host-a:33060", "failure")); v != 2 {
		t.Errorf("expected 2 failures, got %v", v)
	}
}

func TestConnectFailover(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ConnectFailover("host-a:33060")
	c.ConnectFailover("host-a:33060")

	if v := getCounterValue(c.connectFailovers.WithLabelValues("host-a:33060")); v != 2 {
		t.Errorf("expected 2 failovers, got %v", v)
	}
}

func TestConnectCompleted(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ConnectCompleted(50*time.Millisecond, true)
	c.ConnectCompleted(100*time.Millisecond, true)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, f := range families {
		if f.GetName() == "xproto_connect_duration_seconds" {
			found = true
			m := f.GetMetric()
			if len(m) == 0 || m[0].GetHistogram().GetSampleCount() != 2 {
				t.Errorf("expected 2 samples")
			}
		}
	}
	if !found {
		t.Error("connect duration metric not found")
	}
}

func TestAuthOutcome(t *testing.T) {
	c, _ := newTestCollector(t)

	c.AuthOutcome("PLAIN", true)
	c.AuthOutcome("PLAIN", false)

	if v := getCounterValue(c.authOutcomes.WithLabelValues("PLAIN", "success")); v != 1 {
		t.Errorf("expected 1 success, got %v", v)
	}
	if v := getCounterValue(c.authOutcomes.WithLabelValues("PLAIN", "failure")); v != 1 {
		t.Errorf("expected 1 failure, got %v", v)
	}
}

func TestFrameCounters(t *testing.T) {
	c, _ := newTestCollector(t)

	c.FrameSent("ConnectionCapabilitiesGet")
	c.FrameReceived("Connection.Capabilities")
	c.FrameReceived("Connection.Capabilities")

	if v := getCounterValue(c.framesSent.WithLabelValues("ConnectionCapabilitiesGet")); v != 1 {
		t.Errorf("expected 1 sent, got %v", v)
	}
	if v := getCounterValue(c.framesReceived.WithLabelValues("Connection.Capabilities")); v != 2 {
		t.Errorf("expected 2 received, got %v", v)
	}
}

func TestStreamRow(t *testing.T) {
	c, _ := newTestCollector(t)

	c.StreamRow()
	c.StreamRow()
	c.StreamRow()

	if v := getCounterValue(c.streamRows.WithLabelValues()); v != 3 {
		t.Errorf("expected 3 rows, got %v", v)
	}
}

func TestSetEndpointAvailable(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SetEndpointAvailable("host-a:33060", false)
	if v := getGaugeValue(c.endpointAvailable.WithLabelValues("host-a:33060")); v != 0 {
		t.Errorf("expected 0 (unavailable), got %v", v)
	}

	c.SetEndpointAvailable("host-a:33060", true)
	if v := getGaugeValue(c.endpointAvailable.WithLabelValues("host-a:33060")); v != 1 {
		t.Errorf("expected 1 (available), got %v", v)
	}
}

func TestNewDoesNotPanicOnMultipleCalls(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("New() panicked on repeated calls: %v", r)
		}
	}()

	c1 := New()
	c2 := New()

	c1.ConnectAttempt("a", true)
	c2.ConnectAttempt("a", false)

	if v := getCounterValue(c1.connectAttempts.WithLabelValues("a", "success")); v != 1 {
		t.Errorf("c1 expected 1, got %v", v)
	}
	if v := getCounterValue(c2.connectAttempts.WithLabelValues("a", "failure")); v != 1 {
		t.Errorf("c2 expected 1, got %v", v)
	}
}
