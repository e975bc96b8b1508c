package models

import "time"

// Availability is a teacher-owned recurring window during which the teacher
// is open to teach or substitute. A teacher may hold many windows, but
// windows on the same day must not overlap.
type Availability struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Room      *string   `db:"room" json:"room,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Slot returns the availability as a comparable time-slot value.
func (a Availability) Slot() TimeSlot {
	return TimeSlot{DayOfWeek: a.DayOfWeek, StartTime: a.StartTime, EndTime: a.EndTime}
}
