// Package metrics exposes relay counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is what the relay reports. Components take the interface so tests
// can run without a registry.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	EnvelopeReceived(msgType string)
	DecodeFailed()
	FrameDropped()
	Purchase(success bool)
}

// Noop is the default when nothing is wired.
type Noop struct{}

func (Noop) ConnectionOpened()       {}
func (Noop) ConnectionClosed()       {}
func (Noop) EnvelopeReceived(string) {}
func (Noop) DecodeFailed()           {}
func (Noop) FrameDropped()           {}
func (Noop) Purchase(bool)           {}

type Prometheus struct {
	reg         *prometheus.Registry
	connections prometheus.Gauge
	envelopes   *prometheus.CounterVec
	decodeErrs  prometheus.Counter
	dropped     prometheus.Counter
	purchases   *prometheus.CounterVec
}

// NewPrometheus registers collectors on a private registry, so several
// instances can coexist in one test binary.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Prometheus{
		reg: reg,
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "connections",
			Help:      "Currently registered signal connections.",
		}),
		envelopes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "envelopes_total",
			Help:      "Decoded inbound envelopes by type.",
		}, []string{"type"}),
		decodeErrs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "decode_errors_total",
			Help:      "Inbound frames that failed to decode.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "dropped_frames_total",
			Help:      "Outbound frames dropped on a full or closed pipeline.",
		}),
		purchases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "purchases_total",
			Help:      "Market purchases by outcome.",
		}, []string{"result"}),
	}
}

func (p *Prometheus) ConnectionOpened()               { p.connections.Inc() }
func (p *Prometheus) ConnectionClosed()               { p.connections.Dec() }
func (p *Prometheus) EnvelopeReceived(msgType string) { p.envelopes.WithLabelValues(msgType).Inc() }
func (p *Prometheus) DecodeFailed()                   { p.decodeErrs.Inc() }
func (p *Prometheus) FrameDropped()                   { p.dropped.Inc() }

func (p *Prometheus) Purchase(success bool) {
	result := "rejected"
	if success {
		result = "ok"
	}
	p.purchases.WithLabelValues(result).Inc()
}

// Handler serves the private registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }
