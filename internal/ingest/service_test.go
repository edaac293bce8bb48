package ingest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telinsights/internal/logger"
	"telinsights/internal/messages"
	"telinsights/pkg/errors"
	"telinsights/pkg/models"
)

var ts = time.Date(2024, 6, 1, 11, 30, 0, 0, time.UTC)

func envelope(t *testing.T, event MessageEvent) models.MessageEnvelope {
	t.Helper()
	env, err := models.NewMessageEnvelopeBuilder(models.EventTypeMessageEnriched).
		WithSource("telegram-analyzer").
		WithPayload(event).
		Build()
	require.NoError(t, err)
	return *env
}

func event(id int64, metadata string) MessageEvent {
	return MessageEvent{
		ChannelID:         "tech_news",
		TelegramMessageID: id,
		Text:              "New model released",
		Timestamp:         ts,
		Metadata:          json.RawMessage(metadata),
	}
}

func newService(t *testing.T, store Store, filters ...string) *Service {
	t.Helper()
	svc, err := NewService(store, NewMemoryDeduplicator(time.Hour), filters, logger.NopLogger())
	require.NoError(t, err)
	return svc
}

func stored(t *testing.T, repo *messages.MemoryRepository) []messages.EnrichedMessage {
	t.Helper()
	msgs, err := repo.FindMessages(context.Background(), messages.Filter{}, 0)
	require.NoError(t, err)
	return msgs
}

type failingStore struct {
	err   error
	calls int
}

func (f *failingStore) SaveMessage(context.Context, *messages.EnrichedMessage) error {
	f.calls++
	return f.err
}

func TestProcess_StoresNormalizedMessage(t *testing.T) {
	repo := messages.NewMemoryRepository()
	svc := newService(t, repo)

	result, err := svc.Process(context.Background(), envelope(t, event(1,
		`{"summary":"s","topics":["AI", 3],"sentiment":"Positive","keywords":"oops","confidence_score":"1.7"}`)))
	require.NoError(t, err)
	assert.Equal(t, ResultStored, result)

	msgs := stored(t, repo)
	require.Len(t, msgs, 1)
	md := msgs[0].Metadata
	require.NotNil(t, md)
	assert.Equal(t, []string{"AI"}, md.Topics)
	assert.Equal(t, messages.SentimentPositive, md.Sentiment)
	assert.Equal(t, []string{}, md.Keywords)
	assert.Equal(t, 1.0, md.ConfidenceScore)
}

func TestProcess_ParsesAnalysisResponse(t *testing.T) {
	repo := messages.NewMemoryRepository()
	svc := newService(t, repo)

	ev := event(2, "")
	ev.AnalysisResponse = "```json\n{\"summary\":\"x\",\"topics\":[\"markets\"],\"sentiment\":\"negative\",\"keywords\":[]}\n```"

	result, err := svc.Process(context.Background(), envelope(t, ev))
	require.NoError(t, err)
	assert.Equal(t, ResultStored, result)

	msgs := stored(t, repo)
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.SentimentNegative, msgs[0].Metadata.Sentiment)
}

func TestProcess_InvalidAnalysisIsFatal(t *testing.T) {
	svc := newService(t, messages.NewMemoryRepository())

	ev := event(3, "")
	ev.AnalysisResponse = `{"summary":"missing the rest"}`

	_, err := svc.Process(context.Background(), envelope(t, ev))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidMetadata)

	var fatal interface{ IsFatal() bool }
	require.True(t, stderrors.As(err, &fatal))
	assert.True(t, fatal.IsFatal())
}

type captureStore struct{ saved []messages.EnrichedMessage }

func (c *captureStore) SaveMessage(_ context.Context, msg *messages.EnrichedMessage) error {
	c.saved = append(c.saved, *msg)
	return nil
}

func TestProcess_WithoutMetadata(t *testing.T) {
	store := &captureStore{}
	svc := newService(t, store)

	_, err := svc.Process(context.Background(), envelope(t, event(4, "")))
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Nil(t, store.saved[0].Metadata)
	assert.Equal(t, ts, store.saved[0].Timestamp)
}

func TestProcess_Duplicate(t *testing.T) {
	repo := messages.NewMemoryRepository()
	svc := newService(t, repo)

	ev := event(5, `{"topics":["ai"]}`)
	first, err := svc.Process(context.Background(), envelope(t, ev))
	require.NoError(t, err)
	second, err := svc.Process(context.Background(), envelope(t, ev))
	require.NoError(t, err)

	assert.Equal(t, ResultStored, first)
	assert.Equal(t, ResultDuplicate, second)
	assert.Len(t, stored(t, repo), 1)
}

func TestProcess_DropFilters(t *testing.T) {
	repo := messages.NewMemoryRepository()
	svc := newService(t, repo, `!analysed`, `"advertising" in topics`)

	tests := []struct {
		name     string
		metadata string
		want     Result
	}{
		{"unanalysed", "", ResultDropped},
		{"advertising", `{"topics":[" Advertising "]}`, ResultDropped},
		{"kept", `{"topics":["ai"]}`, ResultStored},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Process(context.Background(), envelope(t, event(int64(100+i), tt.metadata)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, stored(t, repo), 1)
}

func TestNewService_RejectsBadFilter(t *testing.T) {
	_, err := NewService(messages.NewMemoryRepository(), NewMemoryDeduplicator(time.Hour), []string{`size(text)`}, logger.NopLogger())
	assert.Error(t, err)
}

func TestProcess_Validation(t *testing.T) {
	svc := newService(t, messages.NewMemoryRepository())

	tests := []struct {
		name   string
		mutate func(*MessageEvent)
	}{
		{"missing channel", func(e *MessageEvent) { e.ChannelID = " " }},
		{"zero message id", func(e *MessageEvent) { e.TelegramMessageID = 0 }},
		{"missing timestamp", func(e *MessageEvent) { e.Timestamp = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := event(7, "")
			tt.mutate(&ev)
			_, err := svc.Process(context.Background(), envelope(t, ev))
			assert.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}

func TestProcess_WrongEventType(t *testing.T) {
	svc := newService(t, messages.NewMemoryRepository())
	env := envelope(t, event(8, ""))
	env.Type = models.EventTypeAlertTriggered

	_, err := svc.Process(context.Background(), env)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestProcess_StoreFailureReleasesClaim(t *testing.T) {
	store := &failingStore{err: errors.ErrStoreUnavailable}
	dedup := NewMemoryDeduplicator(time.Hour)
	svc, err := NewService(store, dedup, nil, logger.NopLogger())
	require.NoError(t, err)

	env := envelope(t, event(9, `{}`))
	_, err = svc.Process(context.Background(), env)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)

	_, err = svc.Process(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestHandle_ReturnsProcessError(t *testing.T) {
	svc := newService(t, messages.NewMemoryRepository())
	ev := event(10, "")
	ev.ChannelID = ""
	assert.Error(t, svc.Handle(context.Background(), envelope(t, ev)))
	assert.NoError(t, svc.Handle(context.Background(), envelope(t, event(11, ""))))
}

func TestMemoryDeduplicator_Expiry(t *testing.T) {
	d := NewMemoryDeduplicator(time.Minute)
	now := ts
	d.now = func() time.Time { return now }

	ok, err := d.Claim(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(context.Background(), "k")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = d.Claim(context.Background(), "k")
	assert.True(t, ok)
}

func TestProcess_AnalysedEventAfterRawIsStored(t *testing.T) {
	ctx := context.Background()
	repo := messages.NewMemoryRepository()
	svc := newService(t, repo)

	raw, err := svc.Process(ctx, envelope(t, event(7, "")))
	require.NoError(t, err)
	assert.Equal(t, ResultStored, raw)

	analysed := `{"summary":"New model","topics":["ai"],"sentiment":"positive","keywords":["model"]}`
	result, err := svc.Process(ctx, envelope(t, event(7, analysed)))
	require.NoError(t, err)
	assert.Equal(t, ResultStored, result)

	redelivered, err := svc.Process(ctx, envelope(t, event(7, analysed)))
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, redelivered)

	count, err := repo.CountMessages(ctx, messages.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	msgs := stored(t, repo)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Metadata)
	assert.Equal(t, []string{"ai"}, msgs[0].Metadata.Topics)
}

func TestProcess_ReanalysisIsStored(t *testing.T) {
	ctx := context.Background()
	repo := messages.NewMemoryRepository()
	svc := newService(t, repo)

	first := `{"summary":"v1","topics":["ai"],"sentiment":"neutral","keywords":[],"analysis_timestamp":"2024-06-01T11:31:00Z"}`
	second := `{"summary":"v2","topics":["ai"],"sentiment":"negative","keywords":[],"analysis_timestamp":"2024-06-01T12:31:00Z"}`

	for _, md := range []string{first, second} {
		result, err := svc.Process(ctx, envelope(t, event(8, md)))
		require.NoError(t, err)
		assert.Equal(t, ResultStored, result)
	}

	msgs := stored(t, repo)
	require.Len(t, msgs, 1)
	assert.Equal(t, "v2", msgs[0].Metadata.Summary)
}

func TestDedupKey(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		metadata *messages.Metadata
		want     string
	}{
		{name: "raw", want: "tech_news:7:raw"},
		{name: "analysed", metadata: &messages.Metadata{}, want: "tech_news:7:analysed"},
		{name: "timestamped", metadata: &messages.Metadata{AnalysisTimestamp: &at}, want: "tech_news:7:analysed:1717243200000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &messages.EnrichedMessage{ChannelID: "tech_news", TelegramMessageID: 7, Metadata: tt.metadata}
			assert.Equal(t, tt.want, dedupKey(msg))
		})
	}
}
