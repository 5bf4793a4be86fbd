package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "faceattend"

var (
	// FacesProcessed counts per-face decisions by outcome: matched, unknown, skipped.
	FacesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "faces_processed_total",
		Help:      "Detected faces processed by the frame loop.",
	}, []string{"outcome"})

	// LedgerWrites counts ledger upserts by result: created, existing, error, ignored.
	LedgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_writes_total",
		Help:      "Attendance ledger writes.",
	}, []string{"result"})

	FrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "frame_process_seconds",
		Help:      "Time spent deciding and recording one frame.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	ReferenceEmbeddings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reference_embeddings",
		Help:      "Reference embeddings in the active index.",
	})

	EnrolledStudents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "indexed_students",
		Help:      "Students with at least one usable reference embedding.",
	})

	ReloadSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reload_skipped_students_total",
		Help:      "Students skipped during reloads because of malformed embeddings.",
	})

	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_closed_total",
		Help:      "Attendance sessions closed.",
	})

	QueueErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_errors_total",
		Help:      "Queue publish and decode failures.",
	}, []string{"queue", "op"})
)
