package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/edupulse-api/internal/models"
)

// AttendanceRepository handles persistence for per-day presence rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or updates a presence row keyed by (course, student, day).
// The conditional upsert is what serializes concurrent markings of the same
// cell; last write wins.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := `INSERT INTO attendance_records (id, course_id, student_id, date, present, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (course_id, student_id, date)
DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at
RETURNING id, course_id, student_id, date, present, created_at, updated_at`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.CourseID, record.StudentID, record.Date, record.Present, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}

// BulkUpsert applies all rows in one transaction.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	const query = `INSERT INTO attendance_records (id, course_id, student_id, date, present, created_at, updated_at)
VALUES (:id, :course_id, :student_id, :date, :present, :created_at, :updated_at)
ON CONFLICT (course_id, student_id, date)
DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance: %w", err)
	}
	return nil
}

// History returns every presence row for the course, ascending by date.
func (r *AttendanceRepository) History(ctx context.Context, courseID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, course_id, student_id, date, present, created_at, updated_at
FROM attendance_records WHERE course_id = $1 ORDER BY date ASC, student_id ASC`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return rows, nil
}

// ByDate returns the presence rows for a single day.
func (r *AttendanceRepository) ByDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, course_id, student_id, date, present, created_at, updated_at
FROM attendance_records WHERE course_id = $1 AND date = $2 ORDER BY student_id ASC`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, courseID, date); err != nil {
		return nil, fmt.Errorf("attendance by date: %w", err)
	}
	return rows, nil
}

// DeleteByDate removes every row for the course/day. A day with no rows is a
// no-op.
func (r *AttendanceRepository) DeleteByDate(ctx context.Context, courseID string, date time.Time) error {
	const query = `DELETE FROM attendance_records WHERE course_id = $1 AND date = $2`
	if _, err := r.db.ExecContext(ctx, query, courseID, date); err != nil {
		return fmt.Errorf("delete attendance day: %w", err)
	}
	return nil
}

// SessionCount counts the distinct session dates recorded for the course.
// This is the denominator for every student's percentage.
func (r *AttendanceRepository) SessionCount(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT date) FROM attendance_records WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// PresentCount counts the days the student was marked present.
func (r *AttendanceRepository) PresentCount(ctx context.Context, courseID, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_records WHERE course_id = $1 AND student_id = $2 AND present`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, studentID); err != nil {
		return 0, fmt.Errorf("count present days: %w", err)
	}
	return count, nil
}
