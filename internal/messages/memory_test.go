package messages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_SaveAssignsIDsAndUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := &EnrichedMessage{ChannelID: "news", TelegramMessageID: 1, Text: "draft", Timestamp: ts}
	require.NoError(t, repo.SaveMessage(ctx, first))
	assert.Equal(t, int64(1), first.ID)

	second := &EnrichedMessage{ChannelID: "news", TelegramMessageID: 2, Text: "other", Timestamp: ts}
	require.NoError(t, repo.SaveMessage(ctx, second))
	assert.Equal(t, int64(2), second.ID)

	edited := &EnrichedMessage{
		ChannelID:         "news",
		TelegramMessageID: 1,
		Text:              "final",
		Timestamp:         ts,
		Metadata:          &Metadata{Summary: "final"},
	}
	require.NoError(t, repo.SaveMessage(ctx, edited))
	assert.Equal(t, int64(1), edited.ID)

	found, err := repo.FindMessages(ctx, Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "final", found[0].Text)
}

func TestMemoryRepository_FindOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{0, 30 * time.Minute, 10 * time.Minute, 30 * time.Minute} {
		require.NoError(t, repo.SaveMessage(ctx, &EnrichedMessage{
			ChannelID:         "news",
			TelegramMessageID: int64(i + 1),
			Timestamp:         base.Add(offset),
			Metadata:          &Metadata{Sentiment: SentimentNeutral},
		}))
	}

	found, err := repo.FindMessages(ctx, Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, found, 4)

	var ids []int64
	for _, m := range found {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{4, 2, 3, 1}, ids)

	limited, err := repo.FindMessages(ctx, Filter{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	count, err := repo.CountMessages(ctx, Window(base.Add(30*time.Minute), 20*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryRepository_ReadsNormalizedMetadata(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.SaveMessage(ctx, &EnrichedMessage{
		ChannelID:         "news",
		TelegramMessageID: 1,
		Timestamp:         time.Now(),
		Metadata:          &Metadata{Sentiment: "furious"},
	}))

	found, err := repo.FindMessages(ctx, Filter{Sentiment: SentimentNeutral}, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, SentimentNeutral, found[0].Metadata.Sentiment)
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryRepository().CountMessages(ctx, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}
