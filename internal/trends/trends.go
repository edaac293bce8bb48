package trends

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/internal/messages"
	"telinsights/pkg/tracing"
)

type TopicTrend struct {
	Topic              string         `json:"topic"`
	MessageCount       int            `json:"message_count"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	DominantSentiment  string         `json:"dominant_sentiment"`
	SentimentScore     int            `json:"sentiment_score"`
}

type MessageFinder interface {
	FindMessages(ctx context.Context, filter messages.Filter, limit int) ([]messages.EnrichedMessage, error)
}

// Analyzer ranks topics over a trailing window. It holds no state between
// calls and is safe for concurrent use.
type Analyzer struct {
	store  MessageFinder
	logger logger.Logger
	now    func() time.Time
}

func NewAnalyzer(store MessageFinder, log logger.Logger) *Analyzer {
	return &Analyzer{store: store, logger: log, now: time.Now}
}

// WithClock returns a copy of the analyzer that reads time from now.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	out := *a
	out.now = now
	return &out
}

// CheckTopicTrends returns the top topics of the last hours, most mentioned first.
func (a *Analyzer) CheckTopicTrends(ctx context.Context, hours int) ([]TopicTrend, error) {
	ctx, span := tracing.StartSpan(ctx, "trends.check_topic_trends", attribute.Int("hours", hours))
	defer span.End()

	now := a.now().UTC()
	filter := messages.Filter{Since: now.Add(-time.Duration(hours) * time.Hour)}

	msgs, err := a.store.FindMessages(ctx, filter, 0)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to load messages for trends: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trends := Rank(msgs, constants.MaxTrendTopics)

	a.logger.InfowCtx(ctx, "Topic trends analyzed",
		"hours", hours,
		"messages", len(msgs),
		"topics", len(trends),
	)
	return trends, nil
}

type bucket struct {
	topic      string
	count      int
	sentiments map[string]int
	// order is the order in which sentiment labels were first counted,
	// after the three known labels.
	order []string
}

// Rank aggregates topics over msgs and returns at most limit trends.
// Topics with equal counts keep the order in which they were first seen.
func Rank(msgs []messages.EnrichedMessage, limit int) []TopicTrend {
	buckets := make(map[string]*bucket)
	var seen []*bucket

	for i := range msgs {
		msg := &msgs[i]
		if msg.Metadata == nil {
			continue
		}
		sentiment := string(msg.SentimentOrNeutral())

		for _, topic := range msg.NormalizedTopics() {
			b, ok := buckets[topic]
			if !ok {
				b = newBucket(topic)
				buckets[topic] = b
				seen = append(seen, b)
			}
			b.count++
			if _, known := b.sentiments[sentiment]; !known {
				b.order = append(b.order, sentiment)
			}
			b.sentiments[sentiment]++
		}
	}

	sort.SliceStable(seen, func(i, j int) bool {
		return seen[i].count > seen[j].count
	})
	if limit > 0 && len(seen) > limit {
		seen = seen[:limit]
	}

	out := make([]TopicTrend, 0, len(seen))
	for _, b := range seen {
		out = append(out, TopicTrend{
			Topic:              b.topic,
			MessageCount:       b.count,
			SentimentBreakdown: b.sentiments,
			DominantSentiment:  b.dominant(),
			SentimentScore:     b.sentiments[constants.SentimentPositive] - b.sentiments[constants.SentimentNegative],
		})
	}
	return out
}

func newBucket(topic string) *bucket {
	sentiments := make(map[string]int, len(messages.Sentiments))
	for _, s := range messages.Sentiments {
		sentiments[string(s)] = 0
	}
	return &bucket{topic: topic, sentiments: sentiments}
}

// dominant picks the first label with the highest count, scanning
// positive, negative, neutral and then other labels in first-seen order.
func (b *bucket) dominant() string {
	best, bestCount := constants.SentimentNeutral, -1
	consider := func(label string) {
		if c := b.sentiments[label]; c > bestCount {
			best, bestCount = label, c
		}
	}
	for _, s := range messages.Sentiments {
		consider(string(s))
	}
	for _, label := range b.order {
		consider(label)
	}
	return best
}

// FilterByMinCount drops trends mentioned fewer than minCount times.
func FilterByMinCount(trends []TopicTrend, minCount int) []TopicTrend {
	out := make([]TopicTrend, 0, len(trends))
	for _, t := range trends {
		if t.MessageCount >= minCount {
			out = append(out, t)
		}
	}
	return out
}
