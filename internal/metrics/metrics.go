// Package metrics exposes prometheus counters for the access pipeline.
package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storegate"

var (
	decisionsTotal      *prometheus.CounterVec
	geoFailuresTotal    prometheus.Counter
	tokensIssuedTotal   prometheus.Counter
	tokensRejectedTotal *prometheus.CounterVec
	initOnce            sync.Once
)

// Init registers the counters. Safe to call more than once; tests get an
// isolated registry so parallel packages do not collide.
func Init() {
	initOnce.Do(func() {
		var registry prometheus.Registerer = prometheus.DefaultRegisterer
		if testing.Testing() {
			registry = prometheus.NewRegistry()
		}

		decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access verdicts by reason.",
		}, []string{"reason"})

		geoFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_failures_total",
			Help:      "Geo lookups that failed and fell open.",
		})

		tokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Bypass tokens issued after email verification.",
		})

		tokensRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_rejected_total",
			Help:      "Bypass token verifications rejected, by reason.",
		}, []string{"reason"})

		registry.MustRegister(decisionsTotal, geoFailuresTotal, tokensIssuedTotal, tokensRejectedTotal)
	})
}

// IncDecision counts a verdict by reason.
func IncDecision(reason string) {
	if decisionsTotal != nil {
		decisionsTotal.WithLabelValues(reason).Inc()
	}
}

// IncGeoFailure counts a fail-open geo lookup.
func IncGeoFailure() {
	if geoFailuresTotal != nil {
		geoFailuresTotal.Inc()
	}
}

// IncTokenIssued counts an issued bypass token.
func IncTokenIssued() {
	if tokensIssuedTotal != nil {
		tokensIssuedTotal.Inc()
	}
}

// IncTokenRejected counts a rejected verification by reason.
func IncTokenRejected(reason string) {
	if tokensRejectedTotal != nil {
		tokensRejectedTotal.WithLabelValues(reason).Inc()
	}
}
