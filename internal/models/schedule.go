package models

import "time"

// Week is a concrete calendar week that course schedules attach to.
type Week struct {
	ID        string    `db:"id" json:"id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseSchedule binds a recurring time slot to a course for a given week.
// It is owned by the course and deleted with it.
type CourseSchedule struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	WeekID    string    `db:"week_id" json:"week_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Room      *string   `db:"room" json:"room,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Slot returns the schedule as a comparable time-slot value.
func (s CourseSchedule) Slot() TimeSlot {
	return TimeSlot{DayOfWeek: s.DayOfWeek, StartTime: s.StartTime, EndTime: s.EndTime}
}

// ScheduleConflict describes an existing schedule that collides with a
// requested slot.
type ScheduleConflict struct {
	ScheduleID string `json:"schedule_id"`
	CourseID   string `json:"course_id"`
	TeacherID  string `json:"teacher_id"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// ScheduleConflictError is returned when a requested slot overlaps an
// existing schedule for the same teacher.
type ScheduleConflictError struct {
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
