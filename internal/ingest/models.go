package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"telinsights/pkg/errors"
)

// MessageEvent is the payload of a message.enriched envelope. Metadata holds
// the stored analysis document; AnalysisResponse carries the raw model output
// when the producer did not parse it.
type MessageEvent struct {
	ChannelID         string          `json:"channel_id"`
	TelegramMessageID int64           `json:"telegram_message_id"`
	Text              string          `json:"text"`
	MediaID           string          `json:"media_id,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	AnalysisResponse  string          `json:"analysis_response,omitempty"`
}

func (e *MessageEvent) Validate() error {
	if strings.TrimSpace(e.ChannelID) == "" {
		return invalidEvent("channel_id", "channel_id is required")
	}
	if e.TelegramMessageID <= 0 {
		return invalidEvent("telegram_message_id", "telegram_message_id must be positive")
	}
	if e.Timestamp.IsZero() {
		return invalidEvent("timestamp", "timestamp is required")
	}
	return nil
}

func invalidEvent(field, message string) error {
	return errors.ErrValidation.WithMessage(message).WithDetail("field", field)
}

type Result string

const (
	ResultStored    Result = "stored"
	ResultDuplicate Result = "duplicate"
	ResultDropped   Result = "dropped"
)
