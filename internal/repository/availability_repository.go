package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/groove-academy/groove-api/internal/models"
)

const availabilityColumns = "id, teacher_id, day_of_week, start_time, end_time, room, created_at, updated_at"

// AvailabilityRepository persists teacher availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// FindByID loads a single availability window.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.Availability, error) {
	query := fmt.Sprintf("SELECT %s FROM availabilities WHERE id = $1", availabilityColumns)
	var availability models.Availability
	if err := r.db.GetContext(ctx, &availability, query, id); err != nil {
		return nil, err
	}
	return &availability, nil
}

// ListByTeacher returns all windows for a teacher ordered by day then start
// time. The ordering is user-visible and must stay stable.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Availability, error) {
	query := fmt.Sprintf("SELECT %s FROM availabilities WHERE teacher_id = $1 ORDER BY day_of_week ASC, start_time ASC", availabilityColumns)
	var availabilities []models.Availability
	if err := r.db.SelectContext(ctx, &availabilities, query, teacherID); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return availabilities, nil
}

// ListByTeacherDay returns a teacher's windows for one day of week.
func (r *AvailabilityRepository) ListByTeacherDay(ctx context.Context, teacherID string, dayOfWeek int) ([]models.Availability, error) {
	query := fmt.Sprintf("SELECT %s FROM availabilities WHERE teacher_id = $1 AND day_of_week = $2 ORDER BY start_time ASC", availabilityColumns)
	var availabilities []models.Availability
	if err := r.db.SelectContext(ctx, &availabilities, query, teacherID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list availabilities for day: %w", err)
	}
	return availabilities, nil
}

// CreateGuarded inserts a window inside one transaction. Writers for the
// same (teacher, day) serialize on an advisory lock; the teacher's existing
// windows are then read and handed to guard before the insert, so concurrent
// requests cannot both pass an overlap check.
func (r *AvailabilityRepository) CreateGuarded(ctx context.Context, availability *models.Availability, guard func(existing []models.Availability) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create availability: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := lockAvailabilities(ctx, tx, availability.TeacherID, availability.DayOfWeek)
	if err != nil {
		return err
	}
	if guard != nil {
		if err = guard(existing); err != nil {
			return err
		}
	}

	if availability.ID == "" {
		availability.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if availability.CreatedAt.IsZero() {
		availability.CreatedAt = now
	}
	availability.UpdatedAt = now

	const query = `INSERT INTO availabilities (id, teacher_id, day_of_week, start_time, end_time, room, created_at, updated_at)
		VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :room, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create availability: %w", err)
	}
	return nil
}

// UpdateGuarded rewrites a window under the same (teacher, day) advisory
// lock as CreateGuarded. The guard receives the teacher's other windows for
// the target day (the updated row excluded).
func (r *AvailabilityRepository) UpdateGuarded(ctx context.Context, availability *models.Availability, guard func(existing []models.Availability) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update availability: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := lockAvailabilities(ctx, tx, availability.TeacherID, availability.DayOfWeek)
	if err != nil {
		return err
	}
	others := locked[:0:0]
	for _, item := range locked {
		if item.ID != availability.ID {
			others = append(others, item)
		}
	}
	if guard != nil {
		if err = guard(others); err != nil {
			return err
		}
	}

	availability.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availabilities SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, room = :room, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("update availability: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update availability: %w", err)
	}
	return nil
}

// Delete removes a window by id.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availabilities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

// lockAvailabilities serializes writers for one (teacher, day) and returns
// the day's windows. Row locks alone cannot order insert-vs-insert: a row a
// concurrent transaction is inserting is invisible to FOR UPDATE, so two
// overlapping inserts would both pass the guard. The transaction-scoped
// advisory lock makes the second writer wait until the first commits, and
// the read that follows it sees the committed row.
func lockAvailabilities(ctx context.Context, tx *sqlx.Tx, teacherID string, dayOfWeek int) ([]models.Availability, error) {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext('availabilities:' || $1), $2)", teacherID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("acquire availability lock: %w", err)
	}
	query := fmt.Sprintf("SELECT %s FROM availabilities WHERE teacher_id = $1 AND day_of_week = $2 ORDER BY start_time ASC", availabilityColumns)
	var existing []models.Availability
	if err := tx.SelectContext(ctx, &existing, query, teacherID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("lock availabilities: %w", err)
	}
	return existing, nil
}
