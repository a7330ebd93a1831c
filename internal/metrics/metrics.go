package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshops_http_requests_total",
			Help: "HTTP requests by method, route template and status class",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workshops_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshops_registrations_total",
			Help: "Public registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	PaymentsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshops_payments_recorded_total",
			Help: "Payment ledger entries by source and result",
		},
		[]string{"source", "result"},
	)

	PaymentAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshops_payment_amount_total",
			Help: "Sum of recorded payment amounts by source",
		},
		[]string{"source"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshops_webhook_events_total",
			Help: "Payment webhook deliveries by result",
		},
		[]string{"result"},
	)

	AdminMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshops_admin_mutations_total",
			Help: "Admin mutations by entity and action",
		},
		[]string{"entity", "action"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshops_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workshops_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordRegistration(outcome string) {
	RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordPayment counts a ledger write. Amounts are only added for new rows.
func RecordPayment(source, result string, amount int64) {
	PaymentsRecordedTotal.WithLabelValues(source, result).Inc()
	if result == "recorded" {
		PaymentAmountTotal.WithLabelValues(source).Add(float64(amount))
	}
}

func RecordWebhook(result string) {
	WebhookEventsTotal.WithLabelValues(result).Inc()
}

func RecordAdminMutation(entity, action string) {
	AdminMutationsTotal.WithLabelValues(entity, action).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func SetEmailQueueLength(n int64) {
	EmailQueueLength.Set(float64(n))
}
