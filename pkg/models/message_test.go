package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	ChannelID string `json:"channel_id"`
	Count     int    `json:"count"`
}

func TestBuilder_Build(t *testing.T) {
	env, err := NewMessageEnvelopeBuilder(EventTypeAlertTriggered).
		WithSource("analysis-service").
		WithPayload(testPayload{ChannelID: "news", Count: 3}).
		WithAttribute("user_id", "42").
		Build()
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.False(t, env.Timestamp.IsZero())
	assert.Equal(t, "42", env.Metadata.Attributes["user_id"])

	var decoded testPayload
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, testPayload{ChannelID: "news", Count: 3}, decoded)
}

func TestBuilder_MarshalError(t *testing.T) {
	_, err := NewMessageEnvelopeBuilder(EventTypeAlertTriggered).
		WithSource("analysis-service").
		WithPayload(make(chan int)).
		Build()
	assert.Error(t, err)
}

func TestValidateMessageEnvelope(t *testing.T) {
	valid := func() *MessageEnvelope {
		return &MessageEnvelope{
			ID:        "id-1",
			Type:      EventTypeMessageEnriched,
			Source:    "analyzer",
			Timestamp: time.Now(),
			Payload:   []byte(`{}`),
		}
	}

	tests := []struct {
		name   string
		mutate func(*MessageEnvelope)
		field  string
	}{
		{name: "valid", mutate: func(*MessageEnvelope) {}},
		{name: "missing id", mutate: func(m *MessageEnvelope) { m.ID = "" }, field: "id"},
		{name: "missing type", mutate: func(m *MessageEnvelope) { m.Type = "" }, field: "type"},
		{name: "missing source", mutate: func(m *MessageEnvelope) { m.Source = "" }, field: "source"},
		{name: "zero timestamp", mutate: func(m *MessageEnvelope) { m.Timestamp = time.Time{} }, field: "timestamp"},
		{name: "empty payload", mutate: func(m *MessageEnvelope) { m.Payload = nil }, field: "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid()
			tt.mutate(msg)
			err := ValidateMessageEnvelope(msg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
