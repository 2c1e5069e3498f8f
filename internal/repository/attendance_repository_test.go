package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	day := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "date", "present", "created_at", "updated_at"}).
		AddRow("att-1", "c1", "alice", day, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		CourseID: "c1", StudentID: "alice", Date: day, Present: true,
	})
	require.NoError(t, err)
	require.Equal(t, "att-1", stored.ID)
	require.True(t, stored.Present)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	day := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.BulkUpsert(context.Background(), []models.AttendanceRecord{
		{CourseID: "c1", StudentID: "alice", Date: day, Present: true},
		{CourseID: "c1", StudentID: "bob", Date: day, Present: false},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	day := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []models.AttendanceRecord{
		{CourseID: "c1", StudentID: "alice", Date: day, Present: true},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	require.NoError(t, repo.BulkUpsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySessionCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT date) FROM attendance_records")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.SessionCount(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryPresentCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_records WHERE course_id = $1 AND student_id = $2 AND present")).
		WithArgs("c1", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.PresentCount(context.Background(), "c1", "alice")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteByDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	day := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_records WHERE course_id = $1 AND date = $2")).
		WithArgs("c1", day).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByDate(context.Background(), "c1", day))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	day := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "date", "present", "created_at", "updated_at"}).
		AddRow("att-1", "c1", "alice", day, true, now, now).
		AddRow("att-2", "c1", "bob", day, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE course_id = $1 ORDER BY date ASC, student_id ASC")).
		WithArgs("c1").
		WillReturnRows(rows)

	records, err := repo.History(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "alice", records[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}
