package management

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telinsights/internal/alertconfig"
	"telinsights/internal/logger"
	"telinsights/pkg/models"
)

type capturingProducer struct {
	err    error
	topics []string
	sent   []models.MessageEnvelope
}

func (p *capturingProducer) Publish(_ context.Context, topic string, msg models.MessageEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.sent = append(p.sent, msg)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func TestChangeNotifier_PublishesEveryChange(t *testing.T) {
	producer := &capturingProducer{}
	repo := alertconfig.NewMemoryRepository()
	svc := NewService(repo, logger.NopLogger(),
		WithNotifier(NewChangeNotifier(producer, "alert_config_events", "management-service")),
	)
	ctx := context.Background()

	cfg, err := svc.CreateAlert(ctx, createReq("Tech", `{"threshold":3}`))
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateAlert(ctx, cfg.ID))

	require.Len(t, producer.sent, 2)
	assert.Equal(t, []string{"alert_config_events", "alert_config_events"}, producer.topics)

	created := producer.sent[0]
	assert.Equal(t, models.EventTypeAlertConfigChanged, created.Type)
	assert.Equal(t, "management-service", created.Source)
	assert.Equal(t, cfg.ID, created.Metadata.Attributes["config_id"])
	assert.Equal(t, ActionCreate, created.Metadata.Attributes["action"])

	var entry AuditEntry
	require.NoError(t, producer.sent[1].DecodePayload(&entry))
	assert.Equal(t, ActionDeactivate, entry.Action)
	assert.Equal(t, "system", entry.ChangedBy)
	require.NotNil(t, entry.NewValue)
	assert.False(t, entry.NewValue.IsActive)
}

func TestChangeNotifier_FailureDoesNotFailChange(t *testing.T) {
	producer := &capturingProducer{err: errors.New("broker not available")}
	svc := NewService(alertconfig.NewMemoryRepository(), logger.NopLogger(),
		WithNotifier(NewChangeNotifier(producer, "alert_config_events", "management-service")),
	)

	cfg, err := svc.CreateAlert(context.Background(), createReq("Tech", `{"threshold":3}`))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.ID)
	assert.Empty(t, producer.sent)
}
