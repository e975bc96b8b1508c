package models

import "time"

// Enrollment links a student to a course. The course capacity invariant
// (count of enrollments <= max_students) is enforced at enrollment time.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
