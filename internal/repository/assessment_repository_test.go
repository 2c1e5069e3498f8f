package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse-api/internal/models"
)

func TestAssessmentRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assessment := &models.Assessment{
		CourseID: "c1", Title: "Quiz 1", Type: models.AssessmentQuiz, MaxMarks: 20,
		Date: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), assessment))
	require.NotEmpty(t, assessment.ID)

	rows := sqlmock.NewRows([]string{"id", "course_id", "title", "type", "max_marks", "date", "created_at"}).
		AddRow(assessment.ID, "c1", "Quiz 1", "QUIZ", 20.0, assessment.Date, time.Now().UTC())
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessments WHERE id = $1")).
		WithArgs(assessment.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), assessment.ID)
	require.NoError(t, err)
	require.Equal(t, models.AssessmentQuiz, found.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryCountByCourseAndType(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assessments WHERE course_id = $1 AND type = $2")).
		WithArgs("c1", models.AssessmentAttendance).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountByCourseAndType(context.Background(), "c1", models.AssessmentAttendance)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryDeleteCascadesGrades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grades WHERE assessment_id = $1")).
		WithArgs("q1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assessments WHERE id = $1")).
		WithArgs("q1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "q1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryDeleteRollsBackOnGradeFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssessmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grades WHERE assessment_id = $1")).
		WithArgs("q1").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	require.Error(t, repo.Delete(context.Background(), "q1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
