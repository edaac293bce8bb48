package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telinsights/internal/broker"
	"telinsights/internal/logger"
	"telinsights/pkg/metrics"
	"telinsights/pkg/models"
	"telinsights/pkg/retry"
)

// Publisher hands triggered alerts to the delivery topic. With a nil
// producer it only logs the notifications.
type Publisher struct {
	producer broker.Producer
	topic    string
	source   string
	policy   retry.Policy
	logger   logger.Logger
	now      func() time.Time
}

func NewPublisher(producer broker.Producer, topic, source string, log logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		source:   source,
		policy:   retry.DefaultPolicy(),
		logger:   log,
		now:      time.Now,
	}
}

// Deliver publishes every alert and returns the joined errors of the ones
// that could not be published.
func (p *Publisher) Deliver(ctx context.Context, alerts []TriggeredAlert) error {
	var errs []error
	for _, alert := range alerts {
		if err := p.deliver(ctx, alert); err != nil {
			metrics.IncAlertDelivery("failed")
			p.logger.ErrorwCtx(ctx, "Failed to deliver alert",
				"alert_id", alert.AlertID,
				"user_id", alert.UserID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("alert %s: %w", alert.AlertID, err))
			continue
		}
		metrics.IncAlertDelivery("success")
	}
	return errors.Join(errs...)
}

func (p *Publisher) deliver(ctx context.Context, alert TriggeredAlert) error {
	delivery := Delivery{
		Alert:        alert,
		Notification: FormatNotification(alert, p.now()),
	}

	if p.producer == nil {
		p.logger.InfowCtx(ctx, "Alert delivery disabled, notification logged only",
			"alert_id", alert.AlertID,
			"user_id", alert.UserID,
			"notification", delivery.Notification,
		)
		return nil
	}

	envelope, err := models.NewMessageEnvelopeBuilder(models.EventTypeAlertTriggered).
		WithID(alert.AlertID).
		WithSource(p.source).
		WithTimestamp(alert.TriggeredAt).
		WithPayload(delivery).
		WithAttribute("user_id", alert.UserID).
		WithAttribute("config_id", alert.ConfigID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build alert envelope: %w", err)
	}

	return retry.RetryWithCallback(ctx, p.policy, func() error {
		return p.producer.Publish(ctx, p.topic, *envelope)
	}, func(attempt int, err error, next time.Duration) {
		p.logger.WarnwCtx(ctx, "Retrying alert delivery",
			"alert_id", alert.AlertID,
			"attempt", attempt,
			"next_delay", next,
			"error", err,
		)
	})
}
