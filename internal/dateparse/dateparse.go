// Package dateparse parses the relative dates gallery filters accept.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parse parses a date relative to now and returns it in YYYY-MM-DD format.
// Dates point backwards, since media is always taken in the past:
//   - today, yesterday
//   - monday, tuesday, ... (most recent, today excluded)
//   - last week, last month, last year
//   - -N (N days ago), N days ago, N weeks ago, N months ago
//   - YYYY (January 1st), YYYY-MM (first of the month), YYYY-MM-DD
func Parse(input string) (string, error) {
	return ParseFrom(input, time.Now())
}

// ParseFrom parses a date relative to the given reference time.
func ParseFrom(input string, now time.Time) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "today":
		return formatDate(now), nil
	case "yesterday":
		return formatDate(now.AddDate(0, 0, -1)), nil
	case "last week", "lastweek":
		return formatDate(now.AddDate(0, 0, -7)), nil
	case "last month", "lastmonth":
		return formatDate(now.AddDate(0, -1, 0)), nil
	case "last year", "lastyear":
		return formatDate(now.AddDate(-1, 0, 0)), nil
	}

	if day, ok := parseWeekday(input); ok {
		return formatDate(lastWeekday(now, day)), nil
	}

	if days, ok := strings.CutPrefix(input, "-"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return formatDate(now.AddDate(0, 0, -n)), nil
		}
	}

	if m := agoPattern.FindStringSubmatch(input); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "day":
			return formatDate(now.AddDate(0, 0, -n)), nil
		case "week":
			return formatDate(now.AddDate(0, 0, -7*n)), nil
		case "month":
			return formatDate(now.AddDate(0, -n, 0)), nil
		case "year":
			return formatDate(now.AddDate(-n, 0, 0)), nil
		}
	}

	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, input); err == nil {
			return formatDate(t), nil
		}
	}

	return "", fmt.Errorf("unrecognized date %q", input)
}

var agoPattern = regexp.MustCompile(`^(\d+) (day|week|month|year)s? ago$`)

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseWeekday(input string) (time.Weekday, bool) {
	input = strings.TrimPrefix(input, "last ")

	switch input {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return 0, false
}

// lastWeekday returns the most recent past occurrence of target. On the
// target weekday itself that is a week ago.
func lastWeekday(now time.Time, target time.Weekday) time.Time {
	daysSince := int(now.Weekday() - target)
	if daysSince <= 0 {
		daysSince += 7
	}
	return now.AddDate(0, 0, -daysSince)
}

// IsValid returns true if the input is a recognized date format.
func IsValid(input string) bool {
	_, err := Parse(input)
	return err == nil
}
