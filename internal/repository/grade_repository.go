package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/edupulse-api/internal/models"
)

// GradeRepository handles grade entry persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts or updates the mark for (assessment, student).
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.DateEntered.IsZero() {
		grade.DateEntered = time.Now().UTC()
	}
	const query = `INSERT INTO grades (id, assessment_id, student_id, marks_obtained, date_entered)
VALUES (:id, :assessment_id, :student_id, :marks_obtained, :date_entered)
ON CONFLICT (assessment_id, student_id)
DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, date_entered = EXCLUDED.date_entered`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// BulkUpsert applies every entry in a single transaction; one failure rolls
// back the whole batch.
func (r *GradeRepository) BulkUpsert(ctx context.Context, grades []models.Grade) error {
	if len(grades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grades tx: %w", err)
	}
	const query = `INSERT INTO grades (id, assessment_id, student_id, marks_obtained, date_entered)
VALUES (:id, :assessment_id, :student_id, :marks_obtained, :date_entered)
ON CONFLICT (assessment_id, student_id)
DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, date_entered = EXCLUDED.date_entered`
	now := time.Now().UTC()
	for i := range grades {
		if grades[i].ID == "" {
			grades[i].ID = uuid.NewString()
		}
		if grades[i].DateEntered.IsZero() {
			grades[i].DateEntered = now
		}
		if _, err := tx.NamedExecContext(ctx, query, grades[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert grade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grades: %w", err)
	}
	return nil
}

// ListByAssessments returns all grades belonging to the given assessments.
func (r *GradeRepository) ListByAssessments(ctx context.Context, assessmentIDs []string) ([]models.Grade, error) {
	if len(assessmentIDs) == 0 {
		return []models.Grade{}, nil
	}
	placeholders := make([]string, len(assessmentIDs))
	args := make([]interface{}, len(assessmentIDs))
	for i, id := range assessmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, assessment_id, student_id, marks_obtained, date_entered
FROM grades WHERE assessment_id IN (%s)`, strings.Join(placeholders, ","))
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// ListByAssessmentsAndStudent restricts the listing to one student.
func (r *GradeRepository) ListByAssessmentsAndStudent(ctx context.Context, assessmentIDs []string, studentID string) ([]models.Grade, error) {
	if len(assessmentIDs) == 0 {
		return []models.Grade{}, nil
	}
	placeholders := make([]string, len(assessmentIDs))
	args := make([]interface{}, len(assessmentIDs)+1)
	for i, id := range assessmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	args[len(args)-1] = studentID
	query := fmt.Sprintf(`SELECT id, assessment_id, student_id, marks_obtained, date_entered
FROM grades WHERE assessment_id IN (%s) AND student_id = $%d`, strings.Join(placeholders, ","), len(args))
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}
