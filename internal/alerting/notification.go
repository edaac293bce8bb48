package alerting

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"telinsights/internal/constants"
)

const notificationTimeLayout = "15:04 02/01/2006"

// FormatNotification renders the Markdown text sent to the user for a triggered alert.
func FormatNotification(alert TriggeredAlert, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 **%s Alert Triggered!**\n\n", alert.ConfigName)
	fmt.Fprintf(&b, "📊 **%d** messages detected\n", alert.ActualMessageCount)
	fmt.Fprintf(&b, "⏰ In the last **%d** minutes\n", alert.WindowMinutes)
	fmt.Fprintf(&b, "🎯 Threshold: **%d** messages\n\n", alert.Threshold)

	if len(alert.Criteria.Keywords) > 0 {
		fmt.Fprintf(&b, "🔍 **Keywords:** %s\n\n", strings.Join(alert.Criteria.Keywords, ", "))
	}

	if len(alert.SampleMessages) > 0 {
		b.WriteString("📰 **Recent Messages:**\n")
		for i, sample := range alert.SampleMessages {
			if i == constants.NotificationSampleCount {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, sampleLine(sample))
		}
		if extra := len(alert.SampleMessages) - constants.NotificationSampleCount; extra > 0 {
			fmt.Fprintf(&b, "... and %d more\n", extra)
		}
	}

	fmt.Fprintf(&b, "\n⏰ %s", now.Format(notificationTimeLayout))
	return b.String()
}

func sampleLine(sample SampleMessage) string {
	line := sample.Summary
	if line == "" {
		line = sample.TextExcerpt
	}
	if utf8.RuneCountInString(line) > constants.NotificationSampleTruncate {
		return string([]rune(line)[:constants.NotificationSampleTruncate]) + constants.ExcerptEllipsis
	}
	return line
}
