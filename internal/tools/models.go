package tools

import (
	"time"

	"telinsights/internal/alerting"
	"telinsights/internal/trends"
)

// SummarizeNewsRequest is the body of POST /tools/summarize_news. Omitted
// numeric fields take their defaults.
type SummarizeNewsRequest struct {
	TimeRangeHours *int     `json:"time_range_hours" binding:"omitempty,min=1,max=168"`
	Topics         []string `json:"topics"`
	Sentiment      string   `json:"sentiment" binding:"omitempty,oneof=positive negative neutral"`
	MaxMessages    *int     `json:"max_messages" binding:"omitempty,min=1,max=200"`
}

type TopicTrendsRequest struct {
	TimeRangeHours *int `json:"time_range_hours" binding:"omitempty,min=1,max=168"`
	MinCount       *int `json:"min_count" binding:"omitempty,min=1"`
}

type TopicTrendsResponse struct {
	Trends         []trends.TopicTrend `json:"trends"`
	TotalTopics    int                 `json:"total_topics"`
	TimeRangeHours int                 `json:"time_range_hours"`
	MinCountFilter int                 `json:"min_count_filter"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

type CheckAlertsRequest struct {
	ForceCheck bool `json:"force_check"`
}

type CheckAlertsResponse struct {
	AlertsTriggered int                       `json:"alerts_triggered"`
	Alerts          []alerting.TriggeredAlert `json:"alerts"`
	ForceCheck      bool                      `json:"force_check"`
	CheckedAt       time.Time                 `json:"checked_at"`
}

type RecentSummaryQuery struct {
	Hours  *int     `form:"hours" binding:"omitempty,min=1,max=168"`
	Topics []string `form:"topics"`
}

type ServiceInfo struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Tools   []string `json:"tools"`
}
