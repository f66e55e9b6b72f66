// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// UTCNowAddPtr returns a pointer to the current UTC time plus the given duration
func UTCNowAddPtr(d time.Duration) *time.Time {
	now := UTCNowAdd(d)
	return &now
}

// IsExpired checks if the given time is in the past (expired)
func IsExpired(t time.Time) bool {
	return UTCNow().After(t)
}

// IsExpiredPtr checks if the given time pointer is in the past (expired)
func IsExpiredPtr(t *time.Time) bool {
	if t == nil {
		return false
	}
	return IsExpired(*t)
}

// TimeToUTC converts a time to UTC if it's not already
func TimeToUTC(t time.Time) time.Time {
	return t.UTC()
}

// TimeToUTCPtr converts a time pointer to UTC if it's not already
func TimeToUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := TimeToUTC(*t)
	return &utc
}

// AddMonthClamped advances t by one calendar month, keeping the same
// day-of-month. When the target month is shorter the day is clamped to the
// last valid day (Jan 31 -> Feb 28/29), unlike time.AddDate which rolls over.
func AddMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfNext := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := daysInMonth(firstOfNext.Year(), firstOfNext.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysUntil returns the whole number of days from today (in loc) until the
// calendar date of deadline. Negative values mean the deadline has passed.
func DaysUntil(now, deadline time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	d := deadline.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	due := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return int(due.Sub(today).Hours() / 24)
}

// NextDailyFire returns the next occurrence of hour:minute (in loc) strictly
// after now. Used by the reminder scheduler to compute its wall-clock trigger.
func NextDailyFire(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	fire := time.Date(n.Year(), n.Month(), n.Day(), hour, minute, 0, 0, loc)
	if !fire.After(n) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}
