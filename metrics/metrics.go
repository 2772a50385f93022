package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logforge_records_generated_total",
			Help: "Total number of records generated",
		},
		[]string{"source"},
	)

	AnomaliesInjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logforge_anomalies_injected_total",
			Help: "Total number of anomalies injected",
		},
		[]string{"source", "archetype"},
	)

	RecordsCorrelated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logforge_records_correlated_total",
			Help: "Total number of records that adopted a shared request identifier",
		},
		[]string{"source"},
	)

	SeverityAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logforge_severity_assigned_total",
			Help: "Total number of severity buckets assigned",
		},
		[]string{"severity"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logforge_generation_duration_seconds",
			Help:    "Time taken by one pipeline run",
			Buckets: prometheus.DefBuckets,
		},
	)

	SinkBatchesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logforge_sink_batches_written_total",
			Help: "Total number of batches written per sink",
		},
		[]string{"sink"},
	)

	SinkWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logforge_sink_write_failures_total",
			Help: "Total number of failed sink writes",
		},
		[]string{"sink"},
	)
)
