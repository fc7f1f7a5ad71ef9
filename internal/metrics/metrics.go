// Package metrics exposes Prometheus collectors for the membership and gate pass engines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nikosoko"

// Metrics is safe to use through a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	joinRequests       *prometheus.CounterVec
	votes              *prometheus.CounterVec
	invitationsCreated *prometheus.CounterVec
	knockDecisions     *prometheus.CounterVec
	redemptions        *prometheus.CounterVec
	expired            prometheus.Counter
	dispatchFailures   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		joinRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "membership", Name: "join_requests_total",
			Help: "Join requests by final or submission outcome.",
		}, []string{"outcome"}),
		votes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "membership", Name: "votes_total",
			Help: "Leader votes by decision and result.",
		}, []string{"decision", "result"}),
		invitationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gatepass", Name: "invitations_created_total",
			Help: "Invitations created by type.",
		}, []string{"type"}),
		knockDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gatepass", Name: "knock_decisions_total",
			Help: "Host decisions on knocks.",
		}, []string{"decision"}),
		redemptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gatepass", Name: "redemptions_total",
			Help: "Access code scans by result.",
		}, []string{"result"}),
		expired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gatepass", Name: "invitations_expired_total",
			Help: "Invitations moved to Expired by the sweep.",
		}),
		dispatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notify", Name: "dispatch_failures_total",
			Help: "Notification fan-out failures by channel.",
		}, []string{"channel"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) JoinRequest(outcome string) {
	if m != nil {
		m.joinRequests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Vote(decision, result string) {
	if m != nil {
		m.votes.WithLabelValues(decision, result).Inc()
	}
}

func (m *Metrics) InvitationCreated(kind string) {
	if m != nil {
		m.invitationsCreated.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) KnockDecision(decision string) {
	if m != nil {
		m.knockDecisions.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) Redemption(result string) {
	if m != nil {
		m.redemptions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Expired(n int) {
	if m != nil {
		m.expired.Add(float64(n))
	}
}

func (m *Metrics) DispatchFailure(channel string) {
	if m != nil {
		m.dispatchFailures.WithLabelValues(channel).Inc()
	}
}
