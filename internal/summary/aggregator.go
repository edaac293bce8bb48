package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/internal/messages"
	"telinsights/pkg/tracing"
)

type MessageFinder interface {
	FindMessages(ctx context.Context, filter messages.Filter, limit int) ([]messages.EnrichedMessage, error)
}

// Aggregator builds windowed digests. It is stateless and safe for concurrent use.
type Aggregator struct {
	store  MessageFinder
	logger logger.Logger
	now    func() time.Time
}

func NewAggregator(store MessageFinder, log logger.Logger) *Aggregator {
	return &Aggregator{store: store, logger: log, now: time.Now}
}

func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	out := *a
	out.now = now
	return &out
}

// GetRecentSummary summarises the analysed messages of the last hours, optionally
// restricted to messages carrying any of topics. An empty window yields a
// zero summary with a note instead of an error.
func (a *Aggregator) GetRecentSummary(ctx context.Context, hours int, topics []string) (*WindowSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "summary.recent_summary", attribute.Int("hours", hours))
	defer span.End()

	now := a.now().UTC()
	filter := messages.Filter{
		Since:  now.Add(-time.Duration(hours) * time.Hour),
		Topics: topics,
	}

	msgs, err := a.store.FindMessages(ctx, filter, 0)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to load messages for summary: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &WindowSummary{
		WindowHours:        hours,
		TotalMessages:      len(msgs),
		SentimentBreakdown: sentimentBreakdown(msgs),
		TopTopics:          topTopics(msgs, constants.MaxSummaryTopics),
		GeneratedAt:        now,
		FilterTopics:       topics,
	}
	if len(msgs) == 0 {
		result.Note = constants.NoMessagesSummary
	}

	a.logger.InfowCtx(ctx, "Window summary generated", "hours", hours, "messages", len(msgs))
	return result, nil
}

// Summarize backs the summarize_news tool: the newest MaxMessages matching
// messages are aggregated and up to ten of their summaries are returned.
func (a *Aggregator) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "summary.summarize_news",
		attribute.Int("hours", req.Hours),
		attribute.Int("max_messages", req.MaxMessages),
	)
	defer span.End()

	now := a.now().UTC()
	filter := messages.Window(now, time.Duration(req.Hours)*time.Hour)
	filter.Topics = req.Topics
	filter.Sentiment = messages.Sentiment(req.Sentiment)

	msgs, err := a.store.FindMessages(ctx, filter, req.MaxMessages)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to load messages for summary: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &SummarizeResponse{
		MessageCount:       len(msgs),
		TimeRangeHours:     req.Hours,
		SentimentBreakdown: sentimentBreakdown(msgs),
		TopTopics:          topTopics(msgs, constants.MaxSummaryTopics),
		KeySummaries:       keySummaries(msgs, constants.MaxKeySummaries),
		Filters:            Filters{Topics: req.Topics},
		GeneratedAt:        now,
	}
	if req.Sentiment != "" {
		s := req.Sentiment
		resp.Filters.Sentiment = &s
	}

	if len(msgs) == 0 {
		resp.Summary = constants.NoMessagesSummary
	} else {
		resp.Summary = summaryText(resp, req)
	}

	a.logger.InfowCtx(ctx, "News summary generated",
		"message_count", resp.MessageCount,
		"time_range_hours", req.Hours,
		"top_topics_count", len(resp.TopTopics),
	)
	return resp, nil
}

func sentimentBreakdown(msgs []messages.EnrichedMessage) map[string]int {
	counts := make(map[string]int, len(messages.Sentiments))
	for _, s := range messages.Sentiments {
		counts[string(s)] = 0
	}
	for i := range msgs {
		counts[string(msgs[i].SentimentOrNeutral())]++
	}
	return counts
}

// topTopics ranks normalized topics by mentions. Equal counts keep first-seen order.
func topTopics(msgs []messages.EnrichedMessage, limit int) TopicCounts {
	index := make(map[string]int)
	ranked := TopicCounts{}
	for i := range msgs {
		for _, topic := range msgs[i].NormalizedTopics() {
			pos, ok := index[topic]
			if !ok {
				pos = len(ranked)
				index[topic] = pos
				ranked = append(ranked, TopicCount{Topic: topic})
			}
			ranked[pos].Count++
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func keySummaries(msgs []messages.EnrichedMessage, limit int) []KeySummary {
	out := []KeySummary{}
	for i := range msgs {
		if len(out) == limit {
			break
		}
		m := &msgs[i]
		if m.Metadata == nil || m.Metadata.Summary == "" {
			continue
		}
		out = append(out, KeySummary{
			Summary:   m.Metadata.Summary,
			Timestamp: m.Timestamp,
			Topics:    append([]string{}, m.Metadata.Topics...),
			Sentiment: string(m.SentimentOrNeutral()),
		})
	}
	return out
}

// dominantSentiment returns the first label with the highest count in the
// order positive, negative, neutral.
func dominantSentiment(breakdown map[string]int) string {
	best, bestCount := string(messages.SentimentPositive), -1
	for _, s := range messages.Sentiments {
		if c := breakdown[string(s)]; c > bestCount {
			best, bestCount = string(s), c
		}
	}
	return best
}

func summaryText(resp *SummarizeResponse, req SummarizeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of %d messages from the last %d hours. ", resp.MessageCount, req.Hours)

	if len(resp.TopTopics) > 0 {
		top := resp.TopTopics[0]
		fmt.Fprintf(&b, "Most discussed topic: '%s' (%d mentions). ", top.Topic, top.Count)
	}

	dominant := dominantSentiment(resp.SentimentBreakdown)
	fmt.Fprintf(&b, "Overall sentiment: %s (%d messages). ", dominant, resp.SentimentBreakdown[dominant])

	if len(req.Topics) > 0 {
		fmt.Fprintf(&b, "Filtered by topics: %s. ", strings.Join(req.Topics, ", "))
	}
	if req.Sentiment != "" {
		fmt.Fprintf(&b, "Filtered by sentiment: %s. ", req.Sentiment)
	}
	return b.String()
}
