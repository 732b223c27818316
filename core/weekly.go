package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Days of the teaching week, in display order.
var Days = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var (
	errInvalidClock = errors.New("invalid time of day")
	errInvalidRange = errors.New("invalid time range")
)

// NormalizeDay lowers and trims a day name ("Monday " -> "monday").
func NormalizeDay(day string) string {
	return CleanString(day, true /* lower */)
}

func IsDay(day string) bool {
	return DayIndex(day) >= 0
}

// DayIndex returns the position of day in Days, or -1.
func DayIndex(day string) int {
	day = NormalizeDay(day)
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return -1
}

// ParseClock parses "HH:MM" (24h) into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, errInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errInvalidClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errInvalidClock
	}
	return h*60 + m, nil
}

// TimeRange is a half-open [Start, End) interval in minutes since midnight.
type TimeRange struct {
	Start int
	End   int
}

// ParseTimeRange parses "09:00-10:30".
func ParseTimeRange(s string) (TimeRange, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return TimeRange{}, errInvalidRange
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return TimeRange{}, errInvalidRange
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return TimeRange{}, errInvalidRange
	}
	if end <= start {
		return TimeRange{}, errInvalidRange
	}
	return TimeRange{Start: start, End: end}, nil
}

func (tr TimeRange) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", tr.Start/60, tr.Start%60, tr.End/60, tr.End%60)
}

func (tr TimeRange) Overlaps(o TimeRange) bool {
	return tr.Start < o.End && o.Start < tr.End
}

// CheckRanges parses every range of a day and reports the first malformed or overlapping one.
func CheckRanges(ranges []string) error {
	parsed := make([]TimeRange, 0, len(ranges))
	for _, r := range ranges {
		tr, err := ParseTimeRange(r)
		if err != nil {
			return errors.Errorf("%q is not a valid time range (HH:MM-HH:MM)", r)
		}
		parsed = append(parsed, tr)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Start < parsed[j].Start })
	for i := 1; i < len(parsed); i++ {
		if parsed[i-1].Overlaps(parsed[i]) {
			return errors.Errorf("%s overlaps %s", parsed[i-1], parsed[i])
		}
	}
	return nil
}

// DayLabel capitalises a day for display ("monday" -> "Monday").
func DayLabel(day string) string {
	day = NormalizeDay(day)
	if day == "" {
		return ""
	}
	return strings.ToUpper(day[:1]) + day[1:]
}
