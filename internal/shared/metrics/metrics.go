package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_scans_total",
		Help: "Documents sent to the extraction service, by outcome.",
	}, []string{"outcome"})

	scanBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "document_scan_batch_duration_ms",
		Help:    "Extraction batch duration in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})

	creditsDebitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credits_debited_total",
		Help: "AI scan credits debited across all companies.",
	})

	creditDebitsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credit_debits_rejected_total",
		Help: "Debit attempts refused for insufficient balance.",
	})

	uploadGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upload_grants_issued_total",
		Help: "Presigned upload grants issued.",
	})

	documentsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documents_recorded_total",
		Help: "Document records created after a successful upload.",
	})

	importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driver_import_rows_total",
		Help: "Bulk import rows by result.",
	}, []string{"result"})

	remindersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expiry_reminders_sent_total",
		Help: "Expiry reminder messages published.",
	})

	reminderJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_jobs_total",
		Help: "Reminder messages handled by the worker, by outcome.",
	}, []string{"outcome"})
)

// ObserveScan records one per-document extraction outcome ("success" or "failure").
func ObserveScan(outcome string) {
	scansTotal.WithLabelValues(outcome).Inc()
}

// ObserveScanBatchDurationMs records an extraction batch duration in milliseconds.
func ObserveScanBatchDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	scanBatchDuration.Observe(value)
}

// AddCreditsDebited increments the debited credit counter.
func AddCreditsDebited(n int) {
	if n > 0 {
		creditsDebitedTotal.Add(float64(n))
	}
}

// IncDebitRejected counts a debit refused for insufficient balance.
func IncDebitRejected() {
	creditDebitsRejectedTotal.Inc()
}

// AddUploadGrants counts issued upload grants.
func AddUploadGrants(n int) {
	if n > 0 {
		uploadGrantsTotal.Add(float64(n))
	}
}

// IncDocumentsRecorded counts created document records.
func IncDocumentsRecorded() {
	documentsRecordedTotal.Inc()
}

// ObserveImportRow records one import row result ("success", "error", "limit_reached").
func ObserveImportRow(result string) {
	importRowsTotal.WithLabelValues(result).Inc()
}

// IncRemindersSent counts published expiry reminders.
func IncRemindersSent() {
	remindersSentTotal.Inc()
}

// IncReminderJob counts one consumed reminder message ("received",
// "completed", "failed", "deleted_unrecoverable").
func IncReminderJob(outcome string) {
	reminderJobsTotal.WithLabelValues(outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
