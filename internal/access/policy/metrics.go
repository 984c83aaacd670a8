// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package policy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/McManning/stakeholder/internal/access"
)

// Metrics for stakeholder permission checks.
var (
	// checkDuration tracks the latency of Check() calls.
	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stakeholder_check_duration_seconds",
		Help:    "Histogram of stakeholder check latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// checksTotal counts checks by realm and verdict.
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stakeholder_checks_total",
		Help: "Total number of stakeholder checks",
	}, []string{"realm", "verdict"})
)

// RecordCheckMetrics records metrics for a completed check. Call it after
// each Check() with the resource's realm label, the verdict, and the
// duration.
func RecordCheckMetrics(realm string, verdict access.Verdict, duration time.Duration) {
	checkDuration.Observe(duration.Seconds())
	checksTotal.WithLabelValues(realm, verdict.String()).Inc()
}
