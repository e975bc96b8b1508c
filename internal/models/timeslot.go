package models

import (
	"fmt"

	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

// TimeSlot is a weekly-recurring interval: a day of week (0 = Sunday) with a
// start and end clock time at minute resolution. Times are zero-padded
// 24-hour "HH:MM" strings, so lexicographic comparison matches chronological
// order once a slot has passed Validate.
//
// All interval comparisons use half-open [start, end) semantics: a slot
// ending at 16:00 does not cover 16:00 and does not collide with one
// starting at 16:00.
type TimeSlot struct {
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// ParseClock converts a zero-padded 24h "HH:MM" string to minutes since
// midnight. Malformed input yields InvalidTimeRange.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, appErrors.Clone(appErrors.ErrInvalidTimeRange, fmt.Sprintf("invalid clock time %q", s))
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, appErrors.Clone(appErrors.ErrInvalidTimeRange, fmt.Sprintf("invalid clock time %q", s))
		}
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	minutes := int(s[3]-'0')*10 + int(s[4]-'0')
	if hours > 23 || minutes > 59 {
		return 0, appErrors.Clone(appErrors.ErrInvalidTimeRange, fmt.Sprintf("invalid clock time %q", s))
	}
	return hours*60 + minutes, nil
}

// Validate checks the day range, clock formats and start < end.
func (t TimeSlot) Validate() error {
	if t.DayOfWeek < 0 || t.DayOfWeek > 6 {
		return appErrors.Clone(appErrors.ErrInvalidTimeRange, fmt.Sprintf("day of week %d out of range", t.DayOfWeek))
	}
	start, err := ParseClock(t.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(t.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return appErrors.Clone(appErrors.ErrInvalidTimeRange, fmt.Sprintf("start %s is not before end %s", t.StartTime, t.EndTime))
	}
	return nil
}

// Overlaps reports whether two validated slots share any instant. Slots on
// different days never overlap; touching endpoints do not overlap.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	if t.DayOfWeek != other.DayOfWeek {
		return false
	}
	return t.StartTime < other.EndTime && other.StartTime < t.EndTime
}

// Contains reports whether the slot covers the given day and clock time.
func (t TimeSlot) Contains(dayOfWeek int, clock string) bool {
	if t.DayOfWeek != dayOfWeek {
		return false
	}
	return t.StartTime <= clock && clock < t.EndTime
}
