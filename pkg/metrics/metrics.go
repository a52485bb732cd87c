// Package metrics provides Prometheus instrumentation for the fraud gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts gate decisions by action (allow, flag, block).
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offerwall",
		Name:      "fraud_decisions_total",
		Help:      "Total admission-control decisions by action.",
	}, []string{"action"})

	// CheckFailuresTotal counts backing-store failures by check and policy.
	CheckFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offerwall",
		Name:      "fraud_check_failures_total",
		Help:      "Total sub-check failures by check name and failure policy.",
	}, []string{"check", "policy"})

	// CheckDuration observes per-event gate latency.
	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "offerwall",
		Name:      "fraud_check_duration_seconds",
		Help:      "End-to-end duration of one fraud check.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// SuspiciousIPsTotal counts IP-abuse signals by reason.
	SuspiciousIPsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offerwall",
		Name:      "fraud_suspicious_ips_total",
		Help:      "Total advisory IP-abuse signals by reason.",
	}, []string{"reason"})

	// FlaggedUsers tracks the number of live fraud flags observed by the
	// most recent report run.
	FlaggedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "offerwall",
		Name:      "fraud_flagged_users",
		Help:      "Live fraud flags as of the last report generation.",
	})
)
