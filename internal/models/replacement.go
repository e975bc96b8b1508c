package models

import "time"

// ReplacementStatus is the lifecycle state of a substitution request.
type ReplacementStatus string

const (
	ReplacementPending   ReplacementStatus = "PENDING"
	ReplacementAccepted  ReplacementStatus = "ACCEPTED"
	ReplacementDeclined  ReplacementStatus = "DECLINED"
	ReplacementCompleted ReplacementStatus = "COMPLETED"
)

// Valid reports whether the value is one of the known statuses.
func (s ReplacementStatus) Valid() bool {
	switch s {
	case ReplacementPending, ReplacementAccepted, ReplacementDeclined, ReplacementCompleted:
		return true
	}
	return false
}

// replacementTransitions is the allowed state machine:
// PENDING -> ACCEPTED | DECLINED, ACCEPTED -> COMPLETED.
// DECLINED and COMPLETED are terminal.
var replacementTransitions = map[ReplacementStatus]map[ReplacementStatus]struct{}{
	ReplacementPending: {
		ReplacementAccepted: {},
		ReplacementDeclined: {},
	},
	ReplacementAccepted: {
		ReplacementCompleted: {},
	},
}

// CanTransition reports whether moving from s to next is allowed.
func (s ReplacementStatus) CanTransition(next ReplacementStatus) bool {
	allowed, ok := replacementTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}

// Replacement records a one-time substitution of one teacher by another for
// a concrete course session. It references teachers and course by id but
// owns none of them.
type Replacement struct {
	ID                   string            `db:"id" json:"id"`
	OriginalTeacherID    string            `db:"original_teacher_id" json:"original_teacher_id"`
	ReplacementTeacherID string            `db:"replacement_teacher_id" json:"replacement_teacher_id"`
	CourseID             string            `db:"course_id" json:"course_id"`
	Date                 time.Time         `db:"date" json:"date"`
	Status               ReplacementStatus `db:"status" json:"status"`
	Notes                *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

// ReplacementFilter captures filtering options for listing replacements.
type ReplacementFilter struct {
	TeacherID string
	CourseID  string
	Status    ReplacementStatus
	Page      int
	PageSize  int
}
