// Package metrics holds the prometheus instrumentation for a server
// connection. A nil *Metrics is valid and counts nothing, so the
// session layer can increment unconditionally.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the transport and authentication activity of one
// connection.
type Metrics struct {
	exchanges     *prometheus.CounterVec
	retries       prometheus.Counter
	upgrades      prometheus.Counter
	loginAttempts prometheus.Counter
	loginFailures prometheus.Counter
}

// New builds the collectors and registers them with reg. A nil
// registerer yields a nil Metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smm_asset",
			Name:      "exchanges_total",
			Help:      "HTTP exchanges performed, by status class.",
		}, []string{"class"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smm_asset",
			Name:      "redirect_retries_total",
			Help:      "Requests retried by the redirect orchestrator.",
		}),
		upgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smm_asset",
			Name:      "https_upgrades_total",
			Help:      "Connections upgraded from http to https.",
		}),
		loginAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smm_asset",
			Name:      "login_attempts_total",
			Help:      "Login attempts made against the server.",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smm_asset",
			Name:      "login_failures_total",
			Help:      "Login attempts that did not end in an authenticated session.",
		}),
	}
	reg.MustRegister(m.exchanges, m.retries, m.upgrades, m.loginAttempts, m.loginFailures)
	return m
}

// Exchange records one completed HTTP exchange. A status of zero is
// recorded as a transport error.
func (m *Metrics) Exchange(status int) {
	if m == nil {
		return
	}
	class := "error"
	if status > 0 {
		class = strconv.Itoa(status/100) + "xx"
	}
	m.exchanges.WithLabelValues(class).Inc()
}

// Retry records a redirect-driven retry.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// Upgrade records an http to https host rewrite.
func (m *Metrics) Upgrade() {
	if m == nil {
		return
	}
	m.upgrades.Inc()
}

// LoginAttempt records the start of a login.
func (m *Metrics) LoginAttempt() {
	if m == nil {
		return
	}
	m.loginAttempts.Inc()
}

// LoginFailure records a login that failed.
func (m *Metrics) LoginFailure() {
	if m == nil {
		return
	}
	m.loginFailures.Inc()
}
