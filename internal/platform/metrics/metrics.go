// Package metrics holds the Prometheus collectors of the users sheet.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "users_sheet"

// Metrics groups the collectors registered for one process.
type Metrics struct {
	SignIns       *prometheus.CounterVec
	Registrations *prometheus.CounterVec
	BulkActions   *prometheus.CounterVec
	HTTPRequests  *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		BulkActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_account_changes_total",
			Help:      "Accounts changed by bulk administration, by action and result.",
		}, []string{"action", "result"}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(m.SignIns, m.Registrations, m.BulkActions, m.HTTPRequests)
	return m
}

// NewNop returns unregistered collectors.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
