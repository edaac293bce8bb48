package summary

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"telinsights/internal/constants"
)

var titleCaser = cases.Title(language.Und)

// FormatDigest renders a summarize_news response as a Markdown message.
func FormatDigest(resp *SummarizeResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 **News Summary (%dh)**\n\n", resp.TimeRangeHours)
	fmt.Fprintf(&b, "📈 %d messages analyzed\n\n", resp.MessageCount)
	fmt.Fprintf(&b, "📝 %s\n\n", resp.Summary)

	if len(resp.TopTopics) > 0 {
		b.WriteString("🔥 **Trending Topics:**\n")
		for i, tc := range resp.TopTopics {
			if i == constants.DigestTopicsShown {
				break
			}
			fmt.Fprintf(&b, "• %s: %d mentions\n", titleCaser.String(tc.Topic), tc.Count)
		}
	}
	return b.String()
}
