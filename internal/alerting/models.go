package alerting

import (
	"time"

	"telinsights/internal/alertconfig"
	"telinsights/internal/messages"
)

// TriggeredAlert is produced for a configuration whose matching message count
// reached its threshold outside cooldown. It is handed to delivery and not stored.
type TriggeredAlert struct {
	AlertID            string               `json:"alert_id"`
	ConfigID           string               `json:"config_id"`
	UserID             string               `json:"user_id"`
	ConfigName         string               `json:"config_name"`
	AlertType          string               `json:"alert_type"`
	Criteria           alertconfig.Criteria `json:"criteria"`
	TriggeredAt        time.Time            `json:"triggered_at"`
	ActualMessageCount int                  `json:"message_count"`
	Threshold          int                  `json:"threshold"`
	WindowMinutes      int                  `json:"time_window_minutes"`
	SampleMessages     []SampleMessage      `json:"sample_messages"`
}

type SampleMessage struct {
	ID          int64              `json:"id"`
	TextExcerpt string             `json:"text"`
	Timestamp   time.Time          `json:"timestamp"`
	Summary     string             `json:"summary"`
	Topics      []string           `json:"topics"`
	Sentiment   messages.Sentiment `json:"sentiment"`
}

// Delivery is the payload published for every triggered alert.
type Delivery struct {
	Alert        TriggeredAlert `json:"alert"`
	Notification string         `json:"notification"`
}
