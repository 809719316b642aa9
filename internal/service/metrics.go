package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerPostsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashbook_posts_total",
		Help: "Ledger entries posted, by entry type",
	}, []string{"entry_type"})

	duplicatePostingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cashbook_duplicate_postings_total",
		Help: "finalizeDisbursement calls absorbed as idempotent no-ops",
	})

	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifications_total",
		Help: "Cascade results, by method",
	}, []string{"method"})

	classificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classification_failures_total",
		Help: "Cascade runs that ended in ClassificationUnavailable",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requisition_transitions_total",
		Help: "Requisition state transitions, by operation",
	}, []string{"operation"})
)
