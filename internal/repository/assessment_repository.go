package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/edupulse-api/internal/models"
)

// AssessmentRepository handles assessment persistence.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assessments (id, course_id, title, type, max_marks, date, created_at)
VALUES (:id, :course_id, :title, :type, :max_marks, :date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// FindByID returns one assessment.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	const query = `SELECT id, course_id, title, type, max_marks, date, created_at
FROM assessments WHERE id = $1`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListByCourse returns the course's assessments ascending by date.
func (r *AssessmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	const query = `SELECT id, course_id, title, type, max_marks, date, created_at
FROM assessments WHERE course_id = $1 ORDER BY date ASC`
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, courseID); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// CountByCourseAndType counts assessments of one type in a course.
func (r *AssessmentRepository) CountByCourseAndType(ctx context.Context, courseID string, assessmentType models.AssessmentType) (int, error) {
	const query = `SELECT COUNT(*) FROM assessments WHERE course_id = $1 AND type = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, assessmentType); err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return count, nil
}

// Delete removes the assessment and its grade rows in one transaction.
func (r *AssessmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM grades WHERE assessment_id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete assessment grades: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete assessment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}
