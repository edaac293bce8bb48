package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telinsights/pkg/errors"
)

func TestNormalizeMetadata_Null(t *testing.T) {
	assert.Nil(t, NormalizeMetadata(nil))
	assert.Nil(t, NormalizeMetadata([]byte("null")))
	assert.Nil(t, NormalizeMetadata([]byte("  ")))
}

func TestNormalizeMetadata_Defaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty object", raw: `{}`},
		{name: "not an object", raw: `["a","b"]`},
		{name: "invalid json", raw: `{"summary":`},
		{name: "wrong field types", raw: `{"summary":1,"topics":"politics","keywords":{"a":1},"sentiment":7,"entities":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NormalizeMetadata([]byte(tt.raw))
			require.NotNil(t, md)
			assert.Equal(t, "", md.Summary)
			assert.Equal(t, []string{}, md.Topics)
			assert.Equal(t, []string{}, md.Keywords)
			assert.Equal(t, SentimentNeutral, md.Sentiment)
			assert.Empty(t, md.Entities)
			assert.Equal(t, 0.5, md.ConfidenceScore)
		})
	}
}

func TestNormalizeMetadata_Fields(t *testing.T) {
	raw := `{
		"summary": "Rates cut",
		"topics": ["Economy", 3, "banks"],
		"sentiment": " Positive ",
		"keywords": ["rate", null],
		"entities": {"organizations": ["ECB"], "locations": "Frankfurt", "people": 4},
		"confidence_score": 1.7,
		"language": "en",
		"analysis_timestamp": "2024-05-01T10:00:00Z"
	}`

	md := NormalizeMetadata([]byte(raw))
	require.NotNil(t, md)
	assert.Equal(t, "Rates cut", md.Summary)
	assert.Equal(t, []string{"Economy", "banks"}, md.Topics)
	assert.Equal(t, []string{"rate"}, md.Keywords)
	assert.Equal(t, SentimentPositive, md.Sentiment)
	assert.Equal(t, map[string][]string{
		"organizations": {"ECB"},
		"locations":     {"Frankfurt"},
	}, md.Entities)
	assert.Equal(t, 1.0, md.ConfidenceScore)
	assert.Equal(t, "en", md.Language)
	require.NotNil(t, md.AnalysisTimestamp)
	assert.Equal(t, 2024, md.AnalysisTimestamp.Year())
}

func TestNormalizeMetadata_UnknownSentiment(t *testing.T) {
	md := NormalizeMetadata([]byte(`{"sentiment":"mixed"}`))
	require.NotNil(t, md)
	assert.Equal(t, SentimentNeutral, md.Sentiment)
}

func TestParseAnalysis(t *testing.T) {
	response := "```json\n{\"summary\":\"s\",\"topics\":[\"t\"],\"sentiment\":\"negative\",\"keywords\":[],\"confidence_score\":\"0.8\"}\n```"

	md, err := ParseAnalysis(response)
	require.NoError(t, err)
	assert.Equal(t, "s", md.Summary)
	assert.Equal(t, []string{"t"}, md.Topics)
	assert.Equal(t, SentimentNegative, md.Sentiment)
	assert.Equal(t, 0.8, md.ConfidenceScore)
}

func TestParseAnalysis_Errors(t *testing.T) {
	_, err := ParseAnalysis("not json")
	assert.ErrorIs(t, err, errors.ErrInvalidMetadata)

	_, err = ParseAnalysis(`{"summary":"s","topics":[],"sentiment":"neutral"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidMetadata)
	assert.Contains(t, err.Error(), "keywords")
}

func TestMetadata_Normalized(t *testing.T) {
	var nilMD *Metadata
	assert.Nil(t, nilMD.Normalized())

	md := (&Metadata{Sentiment: "Angry", ConfidenceScore: -2}).Normalized()
	assert.Equal(t, SentimentNeutral, md.Sentiment)
	assert.Equal(t, []string{}, md.Topics)
	assert.Equal(t, []string{}, md.Keywords)
	assert.Equal(t, 0.0, md.ConfidenceScore)
}
