package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse-api/internal/models"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records      []models.AttendanceRecord
	sessions     int
	present      map[string]int
	deletedDates []time.Time
}

func (m *mockAttendanceRepo) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *mockAttendanceRepo) History(ctx context.Context, courseID string) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func (m *mockAttendanceRepo) ByDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRecord, error) {
	var result []models.AttendanceRecord
	for _, record := range m.records {
		if record.Date.Equal(date) {
			result = append(result, record)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) DeleteByDate(ctx context.Context, courseID string, date time.Time) error {
	m.deletedDates = append(m.deletedDates, date)
	return nil
}

func (m *mockAttendanceRepo) SessionCount(ctx context.Context, courseID string) (int, error) {
	return m.sessions, nil
}

func (m *mockAttendanceRepo) PresentCount(ctx context.Context, courseID, studentID string) (int, error) {
	return m.present[studentID], nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func newAttendanceFixture(repo *mockAttendanceRepo) *AttendanceService {
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": {ID: "c1", Code: "CS101"}}}
	return NewAttendanceService(repo, courses, nil, nil, nil)
}

func TestMarkAttendance(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newAttendanceFixture(repo)

	err := svc.Mark(context.Background(), "c1", MarkAttendanceRequest{
		Date: "2026-02-09",
		Entries: []MarkAttendanceEntry{
			{StudentID: "alice", Present: true},
			{StudentID: "bob", Present: false},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.records, 2)
	assert.Equal(t, "alice", repo.records[0].StudentID)
	assert.True(t, repo.records[0].Present)
	assert.False(t, repo.records[1].Present)
}

func TestMarkAttendanceRejectsDuplicateStudent(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	err := svc.Mark(context.Background(), "c1", MarkAttendanceRequest{
		Date: "2026-02-09",
		Entries: []MarkAttendanceEntry{
			{StudentID: "alice", Present: true},
			{StudentID: "alice", Present: false},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestMarkAttendanceRejectsBadDate(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	err := svc.Mark(context.Background(), "c1", MarkAttendanceRequest{
		Date:    "09/02/2026",
		Entries: []MarkAttendanceEntry{{StudentID: "alice", Present: true}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkAttendanceUnknownCourse(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	err := svc.Mark(context.Background(), "missing", MarkAttendanceRequest{
		Date:    "2026-02-09",
		Entries: []MarkAttendanceEntry{{StudentID: "alice", Present: true}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteDayRejectsBadDate(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newAttendanceFixture(repo)

	err := svc.DeleteDay(context.Background(), "c1", "not-a-date")
	require.Error(t, err)
	assert.Empty(t, repo.deletedDates)
}

func TestSummary(t *testing.T) {
	repo := &mockAttendanceRepo{sessions: 10, present: map[string]int{"alice": 9}}
	svc := newAttendanceFixture(repo)

	summary, err := svc.Summary(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 10, summary.TotalClasses)
	assert.Equal(t, 9, summary.AttendedClasses)
	assert.InDelta(t, 90.0, summary.Percentage, 1e-9)
	assert.Equal(t, 9, summary.GradePoints)
}

func TestSummaryZeroSessions(t *testing.T) {
	repo := &mockAttendanceRepo{sessions: 0}
	svc := newAttendanceFixture(repo)

	summary, err := svc.Summary(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalClasses)
	assert.Zero(t, summary.Percentage)
	assert.Zero(t, summary.GradePoints)
}

func TestSummaryRoundsHalfToEven(t *testing.T) {
	// 1 of 4 sessions is 25%: 2.5 points rounds down to 2.
	repo := &mockAttendanceRepo{sessions: 4, present: map[string]int{"alice": 1, "bob": 3}}
	svc := newAttendanceFixture(repo)

	summary, err := svc.Summary(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GradePoints)

	// 3 of 4 sessions is 75%: 7.5 points rounds up to 8.
	summary, err = svc.Summary(context.Background(), "c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 8, summary.GradePoints)
}

func TestSummaryGradePointsMonotonic(t *testing.T) {
	repo := &mockAttendanceRepo{sessions: 7, present: map[string]int{}}
	svc := newAttendanceFixture(repo)

	previous := -1
	for attended := 0; attended <= 7; attended++ {
		repo.present["s"] = attended
		summary, err := svc.Summary(context.Background(), "c1", "s")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, summary.GradePoints, previous)
		previous = summary.GradePoints
	}
}
