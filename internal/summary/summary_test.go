package summary

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/internal/messages"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, msgs ...messages.EnrichedMessage) *messages.MemoryRepository {
	t.Helper()
	repo := messages.NewMemoryRepository()
	for i := range msgs {
		msgs[i].ChannelID = "c"
		msgs[i].TelegramMessageID = int64(i + 1)
		require.NoError(t, repo.SaveMessage(context.Background(), &msgs[i]))
	}
	return repo
}

func msg(age time.Duration, summary string, sentiment messages.Sentiment, topics ...string) messages.EnrichedMessage {
	return messages.EnrichedMessage{
		Text:      "text " + summary,
		Timestamp: now.Add(-age),
		Metadata:  &messages.Metadata{Summary: summary, Topics: topics, Sentiment: sentiment},
	}
}

func newAggregator(store MessageFinder) *Aggregator {
	return NewAggregator(store, logger.NopLogger()).WithClock(func() time.Time { return now })
}

type failingStore struct{ err error }

func (f failingStore) FindMessages(context.Context, messages.Filter, int) ([]messages.EnrichedMessage, error) {
	return nil, f.err
}

func TestGetRecentSummary_EmptyWindowIsWellFormed(t *testing.T) {
	repo := seed(t, msg(5*time.Hour, "old", messages.SentimentPositive, "tech"))

	got, err := newAggregator(repo).GetRecentSummary(context.Background(), 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, got.TotalMessages)
	assert.Equal(t, map[string]int{"positive": 0, "negative": 0, "neutral": 0}, got.SentimentBreakdown)
	assert.NotNil(t, got.TopTopics)
	assert.Empty(t, got.TopTopics)
	assert.Equal(t, constants.NoMessagesSummary, got.Note)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"top_topics":{}`)
	assert.Contains(t, string(raw), `"total_messages":0`)
}

func TestGetRecentSummary_CountsAndTopics(t *testing.T) {
	repo := seed(t,
		msg(10*time.Minute, "a", messages.SentimentPositive, "Tech", "ai"),
		msg(20*time.Minute, "b", messages.SentimentNegative, "tech"),
		msg(30*time.Minute, "c", messages.SentimentPositive, "sports"),
		messages.EnrichedMessage{Text: "no metadata", Timestamp: now.Add(-time.Minute)},
	)

	got, err := newAggregator(repo).GetRecentSummary(context.Background(), 1, []string{"TECH"})
	require.NoError(t, err)

	assert.Equal(t, 1, got.WindowHours)
	assert.Equal(t, 2, got.TotalMessages)
	assert.Equal(t, map[string]int{"positive": 1, "negative": 1, "neutral": 0}, got.SentimentBreakdown)
	assert.Equal(t, TopicCounts{{Topic: "tech", Count: 2}, {Topic: "ai", Count: 1}}, got.TopTopics)
	assert.Equal(t, []string{"TECH"}, got.FilterTopics)
	assert.Empty(t, got.Note)
	assert.Equal(t, now, got.GeneratedAt)
}

func TestGetRecentSummary_StoreError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := newAggregator(failingStore{err: boom}).GetRecentSummary(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSummarize(t *testing.T) {
	repo := seed(t,
		msg(10*time.Minute, "newest", messages.SentimentPositive, "tech"),
		msg(20*time.Minute, "", messages.SentimentPositive, "tech"),
		msg(30*time.Minute, "oldest", messages.SentimentNeutral, "tech", "ai"),
		msg(2*time.Hour, "outside", messages.SentimentNegative, "tech"),
	)

	resp, err := newAggregator(repo).Summarize(context.Background(), SummarizeRequest{Hours: 1, MaxMessages: 50})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.MessageCount)
	assert.Equal(t, 1, resp.TimeRangeHours)
	assert.Equal(t, TopicCounts{{Topic: "tech", Count: 3}, {Topic: "ai", Count: 1}}, resp.TopTopics)
	require.Len(t, resp.KeySummaries, 2)
	assert.Equal(t, "newest", resp.KeySummaries[0].Summary)
	assert.Equal(t, "oldest", resp.KeySummaries[1].Summary)
	assert.Nil(t, resp.Filters.Sentiment)
	assert.Equal(t,
		"Analysis of 3 messages from the last 1 hours. Most discussed topic: 'tech' (3 mentions). Overall sentiment: positive (2 messages). ",
		resp.Summary)
}

func TestSummarize_FiltersAndCap(t *testing.T) {
	repo := seed(t,
		msg(10*time.Minute, "one", messages.SentimentNegative, "markets"),
		msg(20*time.Minute, "two", messages.SentimentNegative, "markets"),
		msg(30*time.Minute, "three", messages.SentimentPositive, "markets"),
		msg(40*time.Minute, "four", messages.SentimentNegative, "weather"),
	)

	resp, err := newAggregator(repo).Summarize(context.Background(), SummarizeRequest{
		Hours:       1,
		Topics:      []string{"markets"},
		Sentiment:   "negative",
		MaxMessages: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.MessageCount)
	require.Len(t, resp.KeySummaries, 1)
	assert.Equal(t, "one", resp.KeySummaries[0].Summary)
	require.NotNil(t, resp.Filters.Sentiment)
	assert.Equal(t, "negative", *resp.Filters.Sentiment)
	assert.Equal(t,
		"Analysis of 1 messages from the last 1 hours. Most discussed topic: 'markets' (1 mentions). Overall sentiment: negative (1 messages). Filtered by topics: markets. Filtered by sentiment: negative. ",
		resp.Summary)
}

func TestSummarize_Empty(t *testing.T) {
	resp, err := newAggregator(seed(t)).Summarize(context.Background(), SummarizeRequest{Hours: 6, MaxMessages: 50})
	require.NoError(t, err)

	assert.Equal(t, constants.NoMessagesSummary, resp.Summary)
	assert.Equal(t, 0, resp.MessageCount)
	assert.NotNil(t, resp.KeySummaries)
	assert.Empty(t, resp.KeySummaries)
	assert.Equal(t, map[string]int{"positive": 0, "negative": 0, "neutral": 0}, resp.SentimentBreakdown)
}

func TestDominantSentiment_TieBreak(t *testing.T) {
	assert.Equal(t, "positive", dominantSentiment(map[string]int{"positive": 0, "negative": 0, "neutral": 0}))
	assert.Equal(t, "negative", dominantSentiment(map[string]int{"positive": 1, "negative": 2, "neutral": 2}))
	assert.Equal(t, "neutral", dominantSentiment(map[string]int{"positive": 1, "negative": 0, "neutral": 3}))
}

func TestTopicCounts_MarshalKeepsOrder(t *testing.T) {
	raw, err := json.Marshal(TopicCounts{{Topic: "zeta", Count: 4}, {Topic: "alpha", Count: 2}, {Topic: `q"t`, Count: 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":4,"alpha":2,"q\"t":1}`, string(raw))

	raw, err = json.Marshal(TopicCounts(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestFormatDigest(t *testing.T) {
	resp := &SummarizeResponse{
		Summary:        "Busy hour.",
		MessageCount:   12,
		TimeRangeHours: 2,
		TopTopics: TopicCounts{
			{Topic: "artificial intelligence", Count: 6},
			{Topic: "a", Count: 5},
			{Topic: "b", Count: 4},
			{Topic: "c", Count: 3},
			{Topic: "d", Count: 2},
			{Topic: "e", Count: 1},
		},
	}

	want := "📊 **News Summary (2h)**\n\n" +
		"📈 12 messages analyzed\n\n" +
		"📝 Busy hour.\n\n" +
		"🔥 **Trending Topics:**\n" +
		"• Artificial Intelligence: 6 mentions\n" +
		"• A: 5 mentions\n" +
		"• B: 4 mentions\n" +
		"• C: 3 mentions\n" +
		"• D: 2 mentions\n"
	assert.Equal(t, want, FormatDigest(resp))
}

func TestFormatDigest_NoTopics(t *testing.T) {
	resp := &SummarizeResponse{Summary: constants.NoMessagesSummary, TimeRangeHours: 1}
	assert.Equal(t,
		"📊 **News Summary (1h)**\n\n📈 0 messages analyzed\n\n📝 "+constants.NoMessagesSummary+"\n\n",
		FormatDigest(resp))
}
