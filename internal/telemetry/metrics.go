package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected" // caller error: bad file, missing SKU
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	// uploads counts document uploads by outcome.
	uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_uploads_total",
		Help: "Total number of document uploads by outcome",
	}, []string{"outcome"})

	// extractDuration tracks the time from container open to mapped draft.
	extractDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intake_extract_duration_seconds",
		Help:    "Time taken to extract fields from an uploaded document",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})

	// fieldsExtracted tracks how many labelled regions a document carries.
	fieldsExtracted = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intake_fields_extracted",
		Help:    "Number of labelled fields extracted per document",
		Buckets: []float64{0, 1, 5, 10, 20, 30, 50},
	})

	// revisions counts revision creation attempts by outcome.
	revisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_revisions_total",
		Help: "Total number of product revisions by outcome",
	}, []string{"outcome"})
)

// RecordUpload records the outcome of an upload.
func RecordUpload(outcome string) {
	uploads.WithLabelValues(outcome).Inc()
}

// RecordExtraction records extraction duration and field count.
func RecordExtraction(d time.Duration, fields int) {
	extractDuration.Observe(d.Seconds())
	fieldsExtracted.Observe(float64(fields))
}

// RecordRevision records the outcome of a revision request.
func RecordRevision(outcome string) {
	revisions.WithLabelValues(outcome).Inc()
}
