package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried in MessageEnvelope.Type.
const (
	EventTypeMessageEnriched = "message.enriched"
	EventTypeAlertTriggered  = "alert.triggered"

	EventTypeAlertConfigChanged = "alert_config.changed"
)

// MessageEnvelope is the wire format for everything written to the broker.
type MessageEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  Metadata        `json:"metadata"`
}

type Metadata struct {
	TraceID    string            `json:"trace_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	DLQ        *DLQInfo          `json:"dlq,omitempty"`
}

type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}

// DecodePayload unmarshals the envelope payload into v.
func (msg *MessageEnvelope) DecodePayload(v interface{}) error {
	if len(msg.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "message payload is empty"}
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}
	return nil
}

func (msg *MessageEnvelope) SetAttribute(key, value string) {
	if msg.Metadata.Attributes == nil {
		msg.Metadata.Attributes = make(map[string]string)
	}
	msg.Metadata.Attributes[key] = value
}
