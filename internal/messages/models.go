package messages

import (
	"strings"
	"time"

	"telinsights/internal/constants"
)

type Sentiment string

const (
	SentimentPositive Sentiment = constants.SentimentPositive
	SentimentNegative Sentiment = constants.SentimentNegative
	SentimentNeutral  Sentiment = constants.SentimentNeutral
)

// Sentiments lists the labels in the order used for tie-breaking.
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// ParseSentiment accepts a label case-insensitively.
func ParseSentiment(value string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(value))) {
	case SentimentPositive:
		return SentimentPositive, true
	case SentimentNegative:
		return SentimentNegative, true
	case SentimentNeutral:
		return SentimentNeutral, true
	}
	return "", false
}

// Metadata is the structured enrichment attached to a message by the analysis step.
type Metadata struct {
	Summary           string              `json:"summary"`
	Topics            []string            `json:"topics"`
	Sentiment         Sentiment           `json:"sentiment"`
	Keywords          []string            `json:"keywords"`
	Entities          map[string][]string `json:"entities"`
	ConfidenceScore   float64             `json:"confidence_score"`
	SourceType        string              `json:"source_type,omitempty"`
	Language          string              `json:"language,omitempty"`
	AnalysisModel     string              `json:"analysis_model,omitempty"`
	AnalysisTimestamp *time.Time          `json:"analysis_timestamp,omitempty"`
}

// EnrichedMessage is a channel message as read from the message store.
// Metadata is nil for messages the analysis step has not processed yet.
type EnrichedMessage struct {
	ID                int64     `json:"id"`
	TelegramMessageID int64     `json:"telegram_message_id"`
	ChannelID         string    `json:"channel_id"`
	Text              string    `json:"text,omitempty"`
	MediaID           string    `json:"media_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Metadata          *Metadata `json:"metadata,omitempty"`
}

// NormalizedTopics returns the message topics lower-cased and trimmed, without empties.
func (m *EnrichedMessage) NormalizedTopics() []string {
	if m.Metadata == nil {
		return nil
	}
	out := make([]string, 0, len(m.Metadata.Topics))
	for _, topic := range m.Metadata.Topics {
		if t := NormalizeTopic(topic); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SentimentOrNeutral returns the message sentiment, defaulting to neutral.
func (m *EnrichedMessage) SentimentOrNeutral() Sentiment {
	if m.Metadata == nil || m.Metadata.Sentiment == "" {
		return SentimentNeutral
	}
	return m.Metadata.Sentiment
}

func NormalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
