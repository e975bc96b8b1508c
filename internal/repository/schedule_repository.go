package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/groove-academy/groove-api/internal/models"
)

const scheduleColumns = "id, course_id, week_id, teacher_id, day_of_week, start_time, end_time, room, created_at, updated_at"

// ScheduleRepository persists course schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.CourseSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM course_schedules WHERE id = $1", scheduleColumns)
	var sched models.CourseSchedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListByTeacher returns a teacher's schedules ordered by day and start time.
func (r *ScheduleRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM course_schedules WHERE teacher_id = $1 ORDER BY day_of_week ASC, start_time ASC", scheduleColumns)
	var schedules []models.CourseSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedules by teacher: %w", err)
	}
	return schedules, nil
}

// ListByCourse returns a course's schedules ordered by day and start time.
func (r *ScheduleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM course_schedules WHERE course_id = $1 ORDER BY day_of_week ASC, start_time ASC", scheduleColumns)
	var schedules []models.CourseSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, courseID); err != nil {
		return nil, fmt.Errorf("list schedules by course: %w", err)
	}
	return schedules, nil
}

// WeekExists checks whether a calendar week is registered.
func (r *ScheduleRepository) WeekExists(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM weeks WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check week: %w", err)
	}
	return true, nil
}

// CreateGuarded inserts a slot set for one teacher atomically. Concurrent
// schedule writers for the same teacher serialize on a transaction-scoped
// advisory lock; a row lock cannot do this, since a row the other
// transaction is still inserting is invisible to FOR UPDATE and two
// overlapping slot sets would both pass the guard. The teacher's existing
// schedules across all weeks are read after the lock and handed to guard
// before any insert; either every slot is persisted or none is.
func (r *ScheduleRepository) CreateGuarded(ctx context.Context, teacherID string, schedules []models.CourseSchedule, guard func(existing []models.CourseSchedule) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create schedules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext('course_schedules:' || $1))", teacherID); err != nil {
		return fmt.Errorf("acquire schedule lock: %w", err)
	}
	readQuery := fmt.Sprintf("SELECT %s FROM course_schedules WHERE teacher_id = $1 ORDER BY day_of_week ASC, start_time ASC", scheduleColumns)
	var existing []models.CourseSchedule
	if err = tx.SelectContext(ctx, &existing, readQuery, teacherID); err != nil {
		return fmt.Errorf("lock schedules: %w", err)
	}
	if guard != nil {
		if err = guard(existing); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO course_schedules (id, course_id, week_id, teacher_id, day_of_week, start_time, end_time, room, created_at, updated_at)
		VALUES (:id, :course_id, :week_id, :teacher_id, :day_of_week, :start_time, :end_time, :room, :created_at, :updated_at)`
	for i := range schedules {
		payload := schedules[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		if _, err = sqlx.NamedExecContext(ctx, tx, insert, &payload); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		schedules[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create schedules: %w", err)
	}
	return nil
}

// Delete removes a schedule by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM course_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
