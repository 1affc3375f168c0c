// Package normalize converts the API's ISO-8601 duration and timestamp strings
// into the numeric and calendar fields used by the charts.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

const (
	// DefaultHourOffset is the fixed offset added to the UTC publish hour (IST, rounded down).
	DefaultHourOffset = 5
	// ShortTitleLength is the title prefix length used for axis labels.
	ShortTitleLength = 62

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

var (
	ErrInvalidDuration  = errors.New("invalid ISO-8601 duration")
	ErrInvalidTimestamp = errors.New("invalid ISO-8601 timestamp")
)

var weekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ParseDurationSeconds converts an ISO-8601 duration such as "PT1H2M3S" to whole seconds.
func ParseDurationSeconds(iso string) (int64, error) {
	if strings.TrimSpace(iso) == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDuration)
	}
	// "P" and "PT" carry no element; an element needs a digit and T needs one after it.
	if !strings.ContainsAny(iso, "0123456789") || strings.HasSuffix(iso, "P") || strings.HasSuffix(iso, "T") {
		return 0, fmt.Errorf("%w: %q has no duration element", ErrInvalidDuration, iso)
	}
	d, err := duration.Parse(iso)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, iso, err)
	}
	secs := int64(d.ToTimeDuration() / time.Second)
	if secs < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidDuration, iso)
	}
	return secs, nil
}

// DurationMinutes returns secs expressed in minutes.
func DurationMinutes(secs int64) float64 {
	return float64(secs) / 60
}

// SplitTimestamp splits "2024-01-01T15:04:05Z" into its calendar date and
// time-of-day. The trailing zone marker ("Z" or "+hh:mm") is dropped from
// the time component; the clock value itself is not shifted.
func SplitTimestamp(ts string) (time.Time, string, error) {
	datePart, timePart, ok := strings.Cut(ts, "T")
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: %q has no date/time separator", ErrInvalidTimestamp, ts)
	}

	date, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: date %q: %v", ErrInvalidTimestamp, datePart, err)
	}

	timeOfDay := stripZone(timePart)
	if _, err := time.Parse(timeLayout, timeOfDay); err != nil {
		return time.Time{}, "", fmt.Errorf("%w: time %q: %v", ErrInvalidTimestamp, timePart, err)
	}

	return date, timeOfDay, nil
}

// stripZone removes a trailing "Z" or numeric UTC offset.
func stripZone(s string) string {
	if i := strings.IndexAny(s, "Zz"); i >= 0 {
		return s[:i]
	}
	if i := strings.LastIndexAny(s, "+-"); i > 0 {
		return s[:i]
	}
	return s
}

// Hour returns the hour field of a "HH:MM:SS" time-of-day.
func Hour(timeOfDay string) (int, error) {
	hh, _, _ := strings.Cut(timeOfDay, ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: hour in %q", ErrInvalidTimestamp, timeOfDay)
	}
	return h, nil
}

// WeekdayOf returns the Monday-based day index (0..6) and its three-letter label.
func WeekdayOf(date time.Time) (int, string) {
	idx := (int(date.Weekday()) + 6) % 7
	return idx, weekdayLabels[idx]
}

// WeekdayLabel returns the label for a Monday-based day index.
func WeekdayLabel(idx int) string {
	if idx < 0 || idx > 6 {
		return ""
	}
	return weekdayLabels[idx]
}

// AdjustHour shifts hour by offset. The result is deliberately not wrapped
// modulo 24, so 23 shifted by 5 stays 28.
func AdjustHour(hour, offset int) int {
	return hour + offset
}

// ShortTitle returns at most n runes of title.
func ShortTitle(title string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(title)
	if len(r) <= n {
		return title
	}
	return string(r[:n])
}
