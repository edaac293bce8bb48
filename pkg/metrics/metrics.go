package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AlertChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_checks_total",
			Help: "Total number of frequency alert check runs (count)",
		},
		[]string{"trigger", "status"},
	)

	AlertCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_check_duration_ms",
			Help:    "Duration of a full frequency alert check run in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"trigger"},
	)

	AlertConfigEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_config_evaluations_total",
			Help: "Total number of single alert configuration evaluations by result (count)",
		},
		[]string{"result"},
	)

	AlertsTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Total number of triggered alerts (count)",
		},
	)

	AlertConfigsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_configs_active",
			Help: "Number of active frequency alert configurations seen by the last check (count)",
		},
	)

	AlertDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_deliveries_total",
			Help: "Total number of triggered alerts handed to the delivery topic (count)",
		},
		[]string{"status"},
	)

	ToolRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_requests_total",
			Help: "Total number of analysis tool requests (count)",
		},
		[]string{"tool", "status"},
	)

	ToolRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tool_request_duration_ms",
			Help:    "Duration of analysis tool requests in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"tool"},
	)

	IngestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total number of enriched messages received by the ingest service (count)",
		},
		[]string{"status"},
	)

	IngestProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_processing_duration_ms",
			Help:    "Processing duration for the ingest service in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)

	ManagementOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "management_operations_total",
			Help: "Total number of alert configuration management operations (count)",
		},
		[]string{"operation", "status"},
	)
)

func RegisterAnalysisMetrics() {
	prometheus.MustRegister(AlertChecksTotal)
	prometheus.MustRegister(AlertCheckDuration)
	prometheus.MustRegister(AlertConfigEvaluationsTotal)
	prometheus.MustRegister(AlertsTriggeredTotal)
	prometheus.MustRegister(AlertConfigsActive)
	prometheus.MustRegister(AlertDeliveriesTotal)
	prometheus.MustRegister(ToolRequestsTotal)
	prometheus.MustRegister(ToolRequestDuration)
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterIngestMetrics() {
	prometheus.MustRegister(IngestMessagesTotal)
	prometheus.MustRegister(IngestProcessingDuration)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterDatabaseMetrics() {
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(ManagementOperationsTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func ObserveAlertCheck(trigger, status string, duration time.Duration) {
	AlertChecksTotal.WithLabelValues(trigger, status).Inc()
	AlertCheckDuration.WithLabelValues(trigger).Observe(float64(duration.Milliseconds()))
}

func IncAlertConfigEvaluation(result string) {
	AlertConfigEvaluationsTotal.WithLabelValues(result).Inc()
}

func AddAlertsTriggered(count int) {
	AlertsTriggeredTotal.Add(float64(count))
}

func SetAlertConfigsActive(count int) {
	AlertConfigsActive.Set(float64(count))
}

func IncAlertDelivery(status string) {
	AlertDeliveriesTotal.WithLabelValues(status).Inc()
}

func ObserveToolRequest(tool, status string, duration time.Duration) {
	ToolRequestsTotal.WithLabelValues(tool, status).Inc()
	ToolRequestDuration.WithLabelValues(tool).Observe(float64(duration.Milliseconds()))
}

func ObserveIngest(status string, duration time.Duration) {
	IngestMessagesTotal.WithLabelValues(status).Inc()
	IngestProcessingDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWrite(service, topic string, duration time.Duration) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

func IncManagementOperation(operation, status string) {
	ManagementOperationsTotal.WithLabelValues(operation, status).Inc()
}

