package management

import (
	"context"
	"fmt"

	"telinsights/internal/broker"
	"telinsights/pkg/models"
)

// ChangeNotifier publishes alert configuration changes so other consumers,
// such as the bot front end, can react without polling the store.
type ChangeNotifier struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewChangeNotifier(producer broker.Producer, topic, source string) *ChangeNotifier {
	return &ChangeNotifier{producer: producer, topic: topic, source: source}
}

func (n *ChangeNotifier) Notify(ctx context.Context, entry *AuditEntry) error {
	envelope, err := models.NewMessageEnvelopeBuilder(models.EventTypeAlertConfigChanged).
		WithID(entry.ID).
		WithSource(n.source).
		WithTimestamp(entry.Timestamp).
		WithPayload(entry).
		WithAttribute("config_id", entry.ConfigID).
		WithAttribute("action", entry.Action).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build change event: %w", err)
	}

	if err := n.producer.Publish(ctx, n.topic, *envelope); err != nil {
		return fmt.Errorf("failed to publish change event to %s: %w", n.topic, err)
	}
	return nil
}
