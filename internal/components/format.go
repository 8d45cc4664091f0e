package components

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
)

const (
	dateLayout         = "1/2/2006"
	activityDateLayout = "Jan 2, 2006"
	reportTimeLayout   = "Jan 2, 2006, 3:04:05 PM"

	previewLength = 100
	ellipsis      = "..."
)

// FormatMillions renders a currency amount in millions: 2500000 -> "$2.50M".
func FormatMillions(amount float64) string {
	return fmt.Sprintf("$%.2fM", amount/1_000_000)
}

// FormatThousands renders a currency amount in thousands: 250000 -> "$250K".
func FormatThousands(amount float64) string {
	return fmt.Sprintf("$%.0fK", amount/1_000)
}

// FormatCurrency renders a grouped amount: 1250000 -> "$1,250,000".
func FormatCurrency(amount float64) string {
	if amount == math.Trunc(amount) && math.Abs(amount) < 1<<53 {
		return "$" + humanize.Comma(int64(amount))
	}
	return "$" + humanize.CommafWithDigits(amount, 2)
}

// FormatPercent renders a percentage with one decimal
func FormatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// FormatConfidence renders a 0-1 confidence as a percentage: 0.81 -> "81.0%".
func FormatConfidence(confidence float64) string {
	return FormatPercent(confidence * 100)
}

// FormatScore keeps the backend's precision: 72 -> "72/100", 72.5 -> "72.5/100".
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + "/100"
}

// FormatKeyMetric renders numbers with two decimals and anything else as is.
func FormatKeyMetric(value any) string {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("%.2f", v)
	case float32:
		return fmt.Sprintf("%.2f", v)
	case int:
		return fmt.Sprintf("%.2f", float64(v))
	case int64:
		return fmt.Sprintf("%.2f", float64(v))
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// FormatDate renders a short numeric date, or "" for the zero time
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// FormatActivityDate renders the date shown in the activity feed
func FormatActivityDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(activityDateLayout)
}

// FormatReportTime renders the report generation timestamp
func FormatReportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(reportTimeLayout)
}

// Humanize turns a snake_case key into a label: "policies_by_category" ->
// "Policies By Category". Only the first letter of each word changes.
func Humanize(key string) string {
	var b strings.Builder
	b.Grow(len(key))

	inWord := false
	for _, r := range key {
		if r == '_' {
			r = ' '
		}
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		if word && !inWord {
			r = unicode.ToUpper(r)
		}
		inWord = word
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate cuts s to at most limit characters, appending "..." only when
// something was cut.
func Truncate(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}

// UpperLevel renders an enumeration value for a badge: "high" -> "HIGH".
func UpperLevel[T ~string](level T) string {
	return strings.ToUpper(string(level))
}
