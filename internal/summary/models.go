package summary

import (
	"bytes"
	"encoding/json"
	"time"
)

type TopicCount struct {
	Topic string
	Count int
}

// TopicCounts is an ordered topic ranking. It encodes as a JSON object whose
// keys keep the ranking order.
type TopicCounts []TopicCount

func (tc TopicCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range tc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Topic)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(c.Count)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WindowSummary describes the analysed messages of a trailing window.
type WindowSummary struct {
	WindowHours        int            `json:"time_window_hours"`
	TotalMessages      int            `json:"total_messages"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	TopTopics          TopicCounts    `json:"top_topics"`
	GeneratedAt        time.Time      `json:"generated_at"`
	FilterTopics       []string       `json:"filter_topics,omitempty"`
	Note               string         `json:"note,omitempty"`
}

type SummarizeRequest struct {
	Hours       int
	Topics      []string
	Sentiment   string
	MaxMessages int
}

type KeySummary struct {
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
	Topics    []string  `json:"topics"`
	Sentiment string    `json:"sentiment"`
}

type Filters struct {
	Topics    []string `json:"topics"`
	Sentiment *string  `json:"sentiment"`
}

type SummarizeResponse struct {
	Summary            string         `json:"summary"`
	MessageCount       int            `json:"message_count"`
	TimeRangeHours     int            `json:"time_range_hours"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	TopTopics          TopicCounts    `json:"top_topics"`
	KeySummaries       []KeySummary   `json:"key_summaries"`
	Filters            Filters        `json:"filters"`
	GeneratedAt        time.Time      `json:"generated_at"`
}
