package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	treeViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proseed",
		Subsystem: "tree",
		Name:      "violations_total",
		Help:      "Total number of rejected task-tree mutations broken down by code.",
	}, []string{"code"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proseed",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of store conflicts broken down by kind.",
	}, []string{"kind"})

	operationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "proseed",
		Subsystem: "workflow",
		Name:      "operation_duration_seconds",
		Help:      "Latency of workflow service operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "result"})
)

func recordTreeViolation(code string) {
	treeViolations.WithLabelValues(code).Inc()
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	writeConflicts.WithLabelValues(kind).Inc()
}

func observe(operation string, start time.Time, result string) {
	operationLatency.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
