package messages

import (
	"strings"
	"time"
)

// Filter selects analysed messages. Since and Until bound the timestamp
// inclusively; a zero bound is open. Within Keywords and Topics any value
// may match; all non-empty dimensions must match together.
type Filter struct {
	Since     time.Time
	Until     time.Time
	Keywords  []string
	Topics    []string
	Sentiment Sentiment
}

// Window returns a filter over [now-d, now].
func Window(now time.Time, d time.Duration) Filter {
	return Filter{Since: now.Add(-d), Until: now}
}

// Normalized lower-cases and trims the filter terms, dropping empty ones.
func (f Filter) Normalized() Filter {
	f.Keywords = normalizeTerms(f.Keywords)
	f.Topics = normalizeTerms(f.Topics)
	f.Sentiment = Sentiment(strings.ToLower(strings.TrimSpace(string(f.Sentiment))))
	return f
}

// Matches reports whether msg satisfies the filter. Messages without
// metadata never match.
func (f Filter) Matches(msg *EnrichedMessage) bool {
	if msg == nil || msg.Metadata == nil {
		return false
	}
	if !f.Since.IsZero() && msg.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && msg.Timestamp.After(f.Until) {
		return false
	}

	f = f.Normalized()

	if len(f.Keywords) > 0 && !matchesKeywords(msg, f.Keywords) {
		return false
	}
	if len(f.Topics) > 0 && !matchesTopics(msg, f.Topics) {
		return false
	}
	if f.Sentiment != "" && msg.SentimentOrNeutral() != f.Sentiment {
		return false
	}
	return true
}

// matchesKeywords is a substring test on the text or an exact test against
// the metadata keywords, both case-insensitive.
func matchesKeywords(msg *EnrichedMessage, keywords []string) bool {
	text := strings.ToLower(msg.Text)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
		for _, mk := range msg.Metadata.Keywords {
			if strings.ToLower(mk) == kw {
				return true
			}
		}
	}
	return false
}

func matchesTopics(msg *EnrichedMessage, topics []string) bool {
	for _, have := range msg.NormalizedTopics() {
		for _, want := range topics {
			if have == want {
				return true
			}
		}
	}
	return false
}

func normalizeTerms(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.ToLower(strings.TrimSpace(v)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
