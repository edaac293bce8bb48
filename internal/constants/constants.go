package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ServiceNameAnalysis   = "analysis-service"
	ServiceNameIngest     = "ingest-service"
	ServiceNameManagement = "management-service"
	ServiceVersion        = "1.0.0"
)

const (
	DefaultDeliveryTopic = "alerts.triggered"
	DefaultIngestTopic   = "messages.enriched"
	DefaultDLQTopic      = "messages.enriched.dlq"
)

const (
	DefaultMongoDBName         = "telinsights"
	AuditCollection            = "alert_config_audit"
	CacheKeyPrefixCooldown     = "cooldown:"
	CacheKeyPrefixIngestDedup  = "ingest:"
	DefaultIngestDedupTTLHours = 72
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Alert engine defaults.
const (
	AlertTypeFrequency          = "frequency"
	DefaultThreshold            = 20
	DefaultWindowMinutes        = 60
	DefaultCooldownMinutes      = 30
	DefaultCheckIntervalSeconds = 300
	DefaultErrorBackoffSeconds  = 60
	MaxSampleMessages           = 5
	MaxExcerptLength            = 200
	ExcerptEllipsis             = "..."
	AlertIDPrefix               = "freq_"
)

const (
	CooldownBackendMemory = "memory"
	CooldownBackendRedis  = "redis"
)

const (
	MaxTrendTopics    = 20
	MaxSummaryTopics  = 10
	MaxKeySummaries   = 10
	DigestTopicsShown = 5
)

// Tool request bounds.
const (
	MinTimeRangeHours          = 1
	MaxTimeRangeHours          = 168
	DefaultSummaryHours        = 1
	DefaultTrendHours          = 24
	DefaultTrendMinCount       = 2
	DefaultSummaryMaxMessages  = 50
	MaxSummaryMaxMessages      = 200
	NoMessagesSummary          = "No messages found for the specified criteria."
	NotificationSampleCount    = 3
	NotificationSampleTruncate = 100
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

const (
	DefaultConfidenceScore = 0.5
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)
