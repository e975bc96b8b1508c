package models

import "time"

// Course is an offering owned by a single teacher. Capacity bounds the
// enrollment relation, not the schedule.
type Course struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	MaxStudents     int       `db:"max_students" json:"max_students"`
	PricePerStudent float64   `db:"price_per_student" json:"price_per_student"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
