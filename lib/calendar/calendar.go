// Package calendar provides the day-number <-> (year, month, day)
// mapping used throughout lib/mtable. Day numbers are days since the
// Unix epoch (1970-01-01), fitting a 16-bit day number domain.
package calendar

import "time"

// Calendar maps day numbers to calendar fields.
//
// lib/mtable depends only on this interface, never on the concrete
// Gregorian type, so a different calendar (e.g. a proleptic or
// fiscal one) can be substituted without touching the engine.
type Calendar interface {
	// MonthBucket returns the day number of the first day of the
	// month containing day.
	MonthBucket(day int32) int32
}

// Gregorian is the standard proleptic Gregorian calendar, implemented
// on top of the stdlib time package.
type Gregorian struct{}

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// DayNumber converts t to a day number (days since 1970-01-01 UTC).
func DayNumber(t time.Time) int32 {
	d := t.UTC().Truncate(24 * time.Hour).Sub(epoch)
	return int32(d.Hours() / 24)
}

// Date converts a day number back to a time.Time at midnight UTC.
func Date(day int32) time.Time {
	return epoch.Add(time.Duration(day) * 24 * time.Hour)
}

// MonthBucket returns the day number of the first day of the month
// containing day.
func (Gregorian) MonthBucket(day int32) int32 {
	t := Date(day)
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DayNumber(firstOfMonth)
}

// YMD returns the (year, month, day) calendar fields for day.
func (Gregorian) YMD(day int32) (int, time.Month, int) {
	t := Date(day)
	return t.Year(), t.Month(), t.Day()
}
