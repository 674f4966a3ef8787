// Package dates buckets upstream timestamps into calendar days and weeks in a
// configured time zone.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the layout of a calendar-day key.
const DayLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var weekdayNames = []string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// LoadLocation resolves a configured zone name. Empty and "local" map to the
// process zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// Parse reads an ISO date or date-time string. Strings without an offset are
// interpreted in loc.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation(DayLayout, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// DayKey returns the calendar day of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// KeyOf returns the calendar-day key of an upstream date string. Date-only
// values keep their own day regardless of loc.
func KeyOf(s string, loc *time.Location) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == len(DayLayout) {
		if _, err := time.Parse(DayLayout, s); err == nil {
			return s, true
		}
	}
	t, ok := Parse(s, loc)
	if !ok {
		return "", false
	}
	return DayKey(t, loc), true
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekStart returns midnight of the most recent first weekday on or before t.
func WeekStart(t time.Time, loc *time.Location, first time.Weekday) time.Time {
	day := StartOfDay(t, loc)
	offset := (int(day.Weekday()) - int(first) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// DaysAgo moves now back by whole days, keeping the time of day.
func DaysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// DaysRemaining counts whole days from now until start+total days. Partial
// days are truncated.
func DaysRemaining(start time.Time, total int, now time.Time) int {
	target := start.AddDate(0, 0, total)
	return int(target.Sub(now).Hours() / 24)
}

// ParseWeekday reads an English weekday name such as "monday" or "Sun".
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// WeekdayLabel returns the short Chinese weekday name of t.
func WeekdayLabel(t time.Time) string {
	return weekdayNames[t.Weekday()]
}
