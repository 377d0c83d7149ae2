package usecase

import (
	"fmt"

	"logstream-srv/internal/model"
)

func errorRateMessage(count, minutes, threshold int) string {
	return fmt.Sprintf("High error rate: %d errors in %d minutes (threshold %d)", count, minutes, threshold)
}

func patternMessage(pattern, message string) string {
	return fmt.Sprintf("Pattern \"%s\" matched: %s", pattern, excerpt(message))
}

func logLevelMessage(level model.Level, message string) string {
	return fmt.Sprintf("%s log detected: %s", level, excerpt(message))
}

func keywordMessage(keyword, message string) string {
	return fmt.Sprintf("Keyword \"%s\" detected: %s", keyword, excerpt(message))
}

func anomalyMessage(count, minutes int, baseline float64) string {
	return fmt.Sprintf("Anomalous log volume: %d events in %d minutes (baseline %.1f)", count, minutes, baseline)
}

func excerpt(s string) string {
	return truncateText(s, maxMessageExcerpt)
}

func truncateText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max < 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
