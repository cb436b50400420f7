package formatting

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// FormatPeakHour renders an hour of day the way the dashboard KPI shows it ("7:00", "17:00").
func FormatPeakHour(hour int) string {
	return fmt.Sprintf("%d:00", hour)
}

var counts = message.NewPrinter(language.English)

// FormatCount renders an integer with thousands separators.
func FormatCount(v int) string {
	return counts.Sprintf("%d", v)
}

// DayName maps a day-of-week index (Monday=0) to a short label.
func DayName(day int) string {
	if day < 0 || day >= len(dayNames) {
		return strconv.Itoa(day)
	}
	return dayNames[day]
}

// FormatCompact shortens large axis values (12k, 1.2M).
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}

// FormatPercent renders a share in [0,1] as "12.5%".
func FormatPercent(share float64) string {
	return strconv.FormatFloat(share*100, 'f', 1, 64) + "%"
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
