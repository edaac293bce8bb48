package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	eval, err := NewEvaluator()
	require.NoError(t, err)
	return eval
}

func TestFilterExpressionExamplesCompile(t *testing.T) {
	eval := newEvaluator(t)
	for name, expr := range FilterExpressionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateFilterExpression(expr))
		})
	}
}

func TestValidateFilterExpression(t *testing.T) {
	eval := newEvaluator(t)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{name: "bool comparison", expr: `sentiment == "neutral"`},
		{name: "list membership", expr: `"ai" in topics`},
		{name: "syntax error", expr: `invalid syntax here!!!`, wantError: true},
		{name: "undefined variable", expr: `payload.status == "active"`, wantError: true},
		{name: "non bool result", expr: `size(text)`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateFilterExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	eval := newEvaluator(t)
	vars := Vars{
		ChannelID:  "tech_news",
		MessageID:  42,
		Text:       "Huge GIVEAWAY today",
		Timestamp:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Analysed:   true,
		Topics:     []string{"advertising"},
		Sentiment:  "positive",
		Keywords:   []string{"promo-code"},
		Confidence: 0.1,
		Language:   "en",
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "unanalysed", expr: FilterExpressionExamples["unanalysed"], want: false},
		{name: "low confidence", expr: FilterExpressionExamples["low_confidence"], want: true},
		{name: "topic", expr: FilterExpressionExamples["advertising_topic"], want: true},
		{name: "keyword", expr: FilterExpressionExamples["keyword_contains"], want: true},
		{name: "text", expr: FilterExpressionExamples["giveaway_text"], want: true},
		{name: "language", expr: FilterExpressionExamples["non_english"], want: false},
		{name: "channel", expr: FilterExpressionExamples["channel_blocklist"], want: false},
		{name: "message id", expr: `telegram_message_id > 40`, want: true},
		{name: "timestamp", expr: `timestamp > timestamp("2024-01-01T00:00:00Z")`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := eval.CompileFilter(tt.expr)
			require.NoError(t, err)

			got, err := filter.Matches(context.Background(), vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_NilListsAreEmpty(t *testing.T) {
	eval := newEvaluator(t)
	filter, err := eval.CompileFilter(`size(topics) == 0 && size(keywords) == 0`)
	require.NoError(t, err)

	got, err := filter.Matches(context.Background(), Vars{})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestFilter_RuntimeError(t *testing.T) {
	eval := newEvaluator(t)
	filter, err := eval.CompileFilter(`topics[0] == "a"`)
	require.NoError(t, err)

	_, err = filter.Matches(context.Background(), Vars{})
	assert.Error(t, err)
}
