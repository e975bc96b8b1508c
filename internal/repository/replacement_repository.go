package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/groove-academy/groove-api/internal/models"
)

const replacementColumns = "id, original_teacher_id, replacement_teacher_id, course_id, date, status, notes, created_at, updated_at"

// ReplacementRepository persists substitution records.
type ReplacementRepository struct {
	db *sqlx.DB
}

// NewReplacementRepository constructs a ReplacementRepository.
func NewReplacementRepository(db *sqlx.DB) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

// FindByID loads a replacement by id.
func (r *ReplacementRepository) FindByID(ctx context.Context, id string) (*models.Replacement, error) {
	query := fmt.Sprintf("SELECT %s FROM replacements WHERE id = $1", replacementColumns)
	var replacement models.Replacement
	if err := r.db.GetContext(ctx, &replacement, query, id); err != nil {
		return nil, err
	}
	return &replacement, nil
}

// List returns replacements matching the filter ordered by session date.
func (r *ReplacementRepository) List(ctx context.Context, filter models.ReplacementFilter) ([]models.Replacement, int, error) {
	base := "FROM replacements WHERE 1=1"
	var args []interface{}

	if filter.TeacherID != "" {
		base += fmt.Sprintf(" AND (original_teacher_id = $%d OR replacement_teacher_id = $%d)", len(args)+1, len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if filter.CourseID != "" {
		base += fmt.Sprintf(" AND course_id = $%d", len(args)+1)
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date ASC LIMIT %d OFFSET %d", replacementColumns, base, size, offset)
	var replacements []models.Replacement
	if err := r.db.SelectContext(ctx, &replacements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list replacements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count replacements: %w", err)
	}

	return replacements, total, nil
}

// CreateMatched inserts a replacement in the same transaction as the
// availability check. The candidate teacher's windows for the session's day
// are locked in share mode and handed to guard; a failed guard leaves no row
// behind.
func (r *ReplacementRepository) CreateMatched(ctx context.Context, replacement *models.Replacement, dayOfWeek int, guard func(windows []models.Availability) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create replacement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockQuery := fmt.Sprintf("SELECT %s FROM availabilities WHERE teacher_id = $1 AND day_of_week = $2 ORDER BY start_time ASC FOR SHARE", availabilityColumns)
	var windows []models.Availability
	if err = tx.SelectContext(ctx, &windows, lockQuery, replacement.ReplacementTeacherID, dayOfWeek); err != nil {
		return fmt.Errorf("lock availabilities: %w", err)
	}
	if guard != nil {
		if err = guard(windows); err != nil {
			return err
		}
	}

	if replacement.ID == "" {
		replacement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = now
	}
	replacement.UpdatedAt = now

	const query = `INSERT INTO replacements (id, original_teacher_id, replacement_teacher_id, course_id, date, status, notes, created_at, updated_at)
		VALUES (:id, :original_teacher_id, :replacement_teacher_id, :course_id, :date, :status, :notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, replacement); err != nil {
		return fmt.Errorf("create replacement: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create replacement: %w", err)
	}
	return nil
}

// ErrStaleStatus reports that a status update lost to a concurrent
// transition: the row's status no longer matched the one the caller read.
var ErrStaleStatus = errors.New("replacement status changed concurrently")

// UpdateStatus persists a status transition conditionally. The update applies
// only while the row still holds the status the caller validated against;
// a concurrent transition that got there first surfaces as ErrStaleStatus
// instead of being silently overwritten.
func (r *ReplacementRepository) UpdateStatus(ctx context.Context, id string, from, to models.ReplacementStatus) error {
	const query = `UPDATE replacements SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, to, time.Now().UTC(), from)
	if err != nil {
		return fmt.Errorf("update replacement status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update replacement status: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// Delete removes a replacement by id.
func (r *ReplacementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM replacements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete replacement: %w", err)
	}
	return nil
}
