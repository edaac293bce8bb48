package cel

// FilterExpressionExamples are drop rules accepted in ingest.filters.
var FilterExpressionExamples = map[string]string{
	"unanalysed":          `!analysed`,
	"empty_text":          `size(text) == 0`,
	"channel_blocklist":   `channel_id in ["spam_channel", "ads_channel"]`,
	"low_confidence":      `analysed && confidence < 0.2`,
	"advertising_topic":   `"advertising" in topics`,
	"keyword_contains":    `keywords.exists(k, k.contains("promo"))`,
	"short_text":          `size(text) < 10 && summary == ""`,
	"non_english":         `language != "" && language != "en"`,
	"stale_message":       `timestamp < timestamp("2020-01-01T00:00:00Z")`,
	"negative_and_silent": `sentiment == "negative" && size(topics) == 0`,
	"giveaway_text":       `text.lowerAscii().contains("giveaway")`,
}
