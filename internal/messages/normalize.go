package messages

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"telinsights/internal/constants"
	"telinsights/pkg/errors"
)

var requiredAnalysisFields = []string{"summary", "topics", "sentiment", "keywords"}

// NormalizeMetadata decodes a stored metadata document. Malformed fields are
// replaced with safe defaults; a document that is not a JSON object yields
// metadata with every field defaulted. Returns nil only for SQL NULL or JSON null.
func NormalizeMetadata(raw []byte) *Metadata {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		doc = map[string]interface{}{}
	}
	return normalizeDocument(doc)
}

// ParseAnalysis parses an analysis model response into metadata. The response
// may be wrapped in a ```json fence. All of summary, topics, sentiment and
// keywords must be present.
func ParseAnalysis(response string) (*Metadata, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, errors.ErrInvalidMetadata.WithCause(fmt.Errorf("failed to decode analysis response: %w", err))
	}

	for _, field := range requiredAnalysisFields {
		if _, ok := doc[field]; !ok {
			return nil, errors.ErrInvalidMetadata.
				WithMessage(fmt.Sprintf("missing required field: %s", field)).
				WithDetail("field", field)
		}
	}

	return normalizeDocument(doc), nil
}

// Normalized returns a copy of m with the same guarantees NormalizeMetadata gives.
func (m *Metadata) Normalized() *Metadata {
	if m == nil {
		return nil
	}

	out := *m
	out.Topics = cleanStrings(m.Topics)
	out.Keywords = cleanStrings(m.Keywords)
	out.Sentiment = normalizeSentiment(string(m.Sentiment))
	out.ConfidenceScore = clampConfidence(m.ConfidenceScore)

	out.Entities = make(map[string][]string, len(m.Entities))
	for category, values := range m.Entities {
		out.Entities[category] = cleanStrings(values)
	}
	return &out
}

func normalizeDocument(doc map[string]interface{}) *Metadata {
	md := &Metadata{
		Summary:         stringField(doc, "summary"),
		Topics:          stringList(doc["topics"]),
		Sentiment:       normalizeSentiment(stringField(doc, "sentiment")),
		Keywords:        stringList(doc["keywords"]),
		Entities:        entityMap(doc["entities"]),
		ConfidenceScore: confidence(doc["confidence_score"]),
		SourceType:      stringField(doc, "source_type"),
		Language:        stringField(doc, "language"),
		AnalysisModel:   stringField(doc, "analysis_model"),
	}

	if ts := stringField(doc, "analysis_timestamp"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			parsed = parsed.UTC()
			md.AnalysisTimestamp = &parsed
		}
	}

	return md
}

func stringField(doc map[string]interface{}, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func stringList(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func cleanStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func entityMap(value interface{}) map[string][]string {
	out := map[string][]string{}
	doc, ok := value.(map[string]interface{})
	if !ok {
		return out
	}
	for category, raw := range doc {
		switch v := raw.(type) {
		case []interface{}:
			out[category] = stringList(v)
		case string:
			out[category] = []string{v}
		}
	}
	return out
}

// normalizeSentiment maps missing or unknown labels to neutral.
func normalizeSentiment(value string) Sentiment {
	if s, ok := ParseSentiment(value); ok {
		return s
	}
	return SentimentNeutral
}

func confidence(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return clampConfidence(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return clampConfidence(f)
		}
	}
	return constants.DefaultConfidenceScore
}

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return constants.DefaultConfidenceScore
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
