package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{Field: "envelope", Message: "message envelope cannot be nil"}
	}

	if msg.ID == "" {
		return &ValidationError{Field: "id", Message: "message ID is required"}
	}

	if msg.Type == "" {
		return &ValidationError{Field: "type", Message: "event type is required"}
	}

	if msg.Source == "" {
		return &ValidationError{Field: "source", Message: "message source is required"}
	}

	if msg.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "message timestamp is required"}
	}

	if len(msg.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "message payload cannot be empty"}
	}

	return nil
}
