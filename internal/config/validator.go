package config

import (
	"errors"
	"fmt"
	"strings"

	"telinsights/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	validators := []func() error{
		func() error { return validateServer(cfg.Server) },
		func() error { return validateBroker(cfg.Broker) },
		func() error { return validateDatabase(cfg.Database) },
		func() error { return validateAlerting(cfg.Alerting, cfg.Database) },
		func() error { return validateIngest(cfg.Ingest) },
		func() error { return validateRateLimit("tools.rate_limit", cfg.Tools.RateLimit) },
		func() error { return validateRateLimit("management.rate_limit", cfg.Management.RateLimit) },
	}

	var errs []error
	for _, validate := range validators {
		if err := validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{Field: "server.read_timeout_seconds", Message: "read timeout must be positive"}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{Field: "server.write_timeout_seconds", Message: "write timeout must be positive"}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{Field: "broker.kafka.brokers", Message: "at least one Kafka broker is required"}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{Field: "broker.kafka.retry.max_attempts", Message: "max_attempts must be non-negative"}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{Field: "broker.kafka.retry.multiplier", Message: "multiplier must be positive"}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	switch cfg.MessageStore {
	case constants.StoreTypePostgres:
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	case constants.StoreTypeMemory:
	default:
		return &ValidationError{
			Field:   "database.message_store",
			Message: fmt.Sprintf("unknown message store: %s (supported: postgres, memory)", cfg.MessageStore),
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{Field: "database.postgres.host", Message: "PostgreSQL host is required"}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{Field: "database.postgres.user", Message: "PostgreSQL user is required"}
	}

	if cfg.DBName == "" {
		return &ValidationError{Field: "database.postgres.dbname", Message: "PostgreSQL database name is required"}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{Field: "database.redis.host", Message: "Redis host is required"}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{Field: "database.mongodb.database", Message: "MongoDB database name is required"}
	}

	return nil
}

func validateAlerting(cfg AlertingConfig, db DatabaseConfig) error {
	if cfg.DefaultThreshold < 1 {
		return &ValidationError{Field: "alerting.default_threshold", Message: "default threshold must be at least 1"}
	}

	if cfg.DefaultWindowMinutes < 1 {
		return &ValidationError{Field: "alerting.default_window_minutes", Message: "default window must be at least 1 minute"}
	}

	if cfg.CooldownMinutes < 0 {
		return &ValidationError{Field: "alerting.cooldown_minutes", Message: "cooldown must be non-negative"}
	}

	if cfg.CheckIntervalSeconds < 1 {
		return &ValidationError{Field: "alerting.check_interval_seconds", Message: "check interval must be positive"}
	}

	if cfg.ErrorBackoffSeconds < 0 {
		return &ValidationError{Field: "alerting.error_backoff_seconds", Message: "error backoff must be non-negative"}
	}

	switch cfg.CooldownBackend {
	case constants.CooldownBackendMemory:
	case constants.CooldownBackendRedis:
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "alerting.cooldown_backend",
				Message: "redis cooldown backend requires database.redis to be configured",
			}
		}
	default:
		return &ValidationError{
			Field:   "alerting.cooldown_backend",
			Message: fmt.Sprintf("unknown cooldown backend: %s (supported: memory, redis)", cfg.CooldownBackend),
		}
	}

	return nil
}

func validateIngest(cfg IngestConfig) error {
	if cfg.DedupTTLHours < 0 {
		return &ValidationError{Field: "ingest.dedup_ttl_hours", Message: "dedup TTL must be non-negative"}
	}

	validOnError := map[string]bool{
		constants.FallbackAllow: true, constants.FallbackDeny: true,
	}
	if cfg.OnRedisError != "" && !validOnError[strings.ToLower(cfg.OnRedisError)] {
		return &ValidationError{
			Field:   "ingest.on_redis_error",
			Message: fmt.Sprintf("invalid on_redis_error value: %s (valid: allow, deny)", cfg.OnRedisError),
		}
	}

	for i, expr := range cfg.Filters {
		if strings.TrimSpace(expr) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("ingest.filters[%d]", i),
				Message: "filter expression cannot be empty",
			}
		}
	}

	return nil
}

func validateRateLimit(field string, cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RPS <= 0 {
		return &ValidationError{Field: field + ".rps", Message: "rps must be positive when rate limiting is enabled"}
	}

	if cfg.Burst < 1 {
		return &ValidationError{Field: field + ".burst", Message: "burst must be at least 1"}
	}

	return nil
}
