package models

import (
	"sort"
	"time"
)

// TimetableEntryKind distinguishes free windows from booked lessons.
type TimetableEntryKind string

const (
	EntryAvailability TimetableEntryKind = "AVAILABILITY"
	EntryCourse       TimetableEntryKind = "COURSE"
)

// TimetableEntry is one row of a teacher's weekly timetable.
type TimetableEntry struct {
	DayOfWeek  int                `json:"day_of_week"`
	StartTime  string             `json:"start_time"`
	EndTime    string             `json:"end_time"`
	Kind       TimetableEntryKind `json:"kind"`
	CourseID   string             `json:"course_id,omitempty"`
	CourseName string             `json:"course_name,omitempty"`
	WeekID     string             `json:"week_id,omitempty"`
	Room       *string            `json:"room,omitempty"`
}

// TeacherTimetable is the derived weekly view of a teacher: their open
// availability windows merged with their scheduled course slots. It is
// computed, cached, never stored.
type TeacherTimetable struct {
	TeacherID   string           `json:"teacher_id"`
	TeacherName string           `json:"teacher_name"`
	Entries     []TimetableEntry `json:"entries"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// SortEntries orders entries by day of week, then start time, then kind so
// availability windows precede the lessons booked inside them.
func (t *TeacherTimetable) SortEntries() {
	sort.SliceStable(t.Entries, func(i, j int) bool {
		a, b := t.Entries[i], t.Entries[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Kind < b.Kind
	})
}
