package broker

import (
	"errors"
	"fmt"

	"telinsights/internal/config"
	"telinsights/internal/logger"
)

// ErrBrokerDisabled is returned by the factories when no broker type is configured.
var ErrBrokerDisabled = errors.New("broker disabled")

func NewProducer(cfg config.BrokerConfig, serviceName string, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, serviceName, log), nil
	case "":
		return nil, ErrBrokerDisabled
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaConsumer(cfg.Kafka, log), nil
	case "":
		return nil, ErrBrokerDisabled
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
