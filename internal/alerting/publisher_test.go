package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telinsights/internal/logger"
	"telinsights/pkg/models"
	"telinsights/pkg/retry"
)

type recordingProducer struct {
	mu       sync.Mutex
	failures int
	topics   []string
	sent     []models.MessageEnvelope
}

func (p *recordingProducer) Publish(_ context.Context, topic string, msg models.MessageEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker not available")
	}
	p.topics = append(p.topics, topic)
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
		MaxElapsedTime:  time.Second,
	}
}

func TestPublisher_Deliver(t *testing.T) {
	producer := &recordingProducer{failures: 1}
	p := NewPublisher(producer, "alerts.triggered", "analysis-service", logger.NopLogger())
	p.policy = testPolicy()
	p.now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) }

	alert := TriggeredAlert{
		AlertID:            "freq_cfg_1704101400",
		ConfigID:           "cfg",
		UserID:             "42",
		ConfigName:         "Tech",
		TriggeredAt:        time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		ActualMessageCount: 3,
		Threshold:          2,
		WindowMinutes:      60,
	}

	require.NoError(t, p.Deliver(context.Background(), []TriggeredAlert{alert}))
	require.Len(t, producer.sent, 1)

	env := producer.sent[0]
	assert.Equal(t, "alerts.triggered", producer.topics[0])
	assert.Equal(t, models.EventTypeAlertTriggered, env.Type)
	assert.Equal(t, alert.AlertID, env.ID)
	assert.Equal(t, "42", env.Metadata.Attributes["user_id"])

	var delivery Delivery
	require.NoError(t, env.DecodePayload(&delivery))
	assert.Equal(t, alert.ConfigID, delivery.Alert.ConfigID)
	assert.Contains(t, delivery.Notification, "🚨 **Tech Alert Triggered!**")
	assert.Contains(t, delivery.Notification, "09:30 01/01/2024")
}

func TestPublisher_DeliverReportsExhaustedRetries(t *testing.T) {
	producer := &recordingProducer{failures: 10}
	p := NewPublisher(producer, "alerts.triggered", "analysis-service", logger.NopLogger())
	p.policy = testPolicy()

	err := p.Deliver(context.Background(), []TriggeredAlert{{AlertID: "a1", TriggeredAt: time.Now()}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a1")
	assert.Empty(t, producer.sent)
}

func TestPublisher_NilProducerLogsOnly(t *testing.T) {
	p := NewPublisher(nil, "alerts.triggered", "analysis-service", logger.NopLogger())
	assert.NoError(t, p.Deliver(context.Background(), []TriggeredAlert{{AlertID: "a1"}}))
}
