package domain

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ISOWeek returns the ISO 8601 week number of the date.
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}

// WeekMonday returns the Monday that starts the ISO week containing t.
func WeekMonday(t time.Time) time.Time {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDate(0, 0, -offset)
}

// IsWeekend reports Saturday and Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
