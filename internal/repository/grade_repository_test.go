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

func TestGradeRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := &models.Grade{AssessmentID: "q1", StudentID: "alice", MarksObtained: 18}
	require.NoError(t, repo.Upsert(context.Background(), grade))
	require.NotEmpty(t, grade.ID)
	require.False(t, grade.DateEntered.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryBulkUpsertCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.BulkUpsert(context.Background(), []models.Grade{
		{AssessmentID: "q1", StudentID: "alice", MarksObtained: 18},
		{AssessmentID: "q1", StudentID: "bob", MarksObtained: 12},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []models.Grade{
		{AssessmentID: "q1", StudentID: "alice", MarksObtained: 18},
		{AssessmentID: "q2", StudentID: "alice", MarksObtained: 12},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByAssessments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "assessment_id", "student_id", "marks_obtained", "date_entered"}).
		AddRow("g1", "q1", "alice", 18.0, now).
		AddRow("g2", "q2", "alice", 15.0, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grades WHERE assessment_id IN ($1,$2)")).
		WithArgs("q1", "q2").
		WillReturnRows(rows)

	grades, err := repo.ListByAssessments(context.Background(), []string{"q1", "q2"})
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByAssessmentsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	grades, err := repo.ListByAssessments(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, grades)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByAssessmentsAndStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "assessment_id", "student_id", "marks_obtained", "date_entered"}).
		AddRow("g1", "q1", "alice", 18.0, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grades WHERE assessment_id IN ($1,$2) AND student_id = $3")).
		WithArgs("q1", "q2", "alice").
		WillReturnRows(rows)

	grades, err := repo.ListByAssessmentsAndStudent(context.Background(), []string{"q1", "q2"}, "alice")
	require.NoError(t, err)
	require.Len(t, grades, 1)
	require.Equal(t, "alice", grades[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}
