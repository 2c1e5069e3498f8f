package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse-api/internal/models"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

type mockGradeRepo struct {
	stored map[string]models.Grade
}

func (m *mockGradeRepo) key(grade models.Grade) string {
	return grade.AssessmentID + "|" + grade.StudentID
}

func (m *mockGradeRepo) Upsert(ctx context.Context, grade *models.Grade) error {
	if m.stored == nil {
		m.stored = make(map[string]models.Grade)
	}
	m.stored[m.key(*grade)] = *grade
	return nil
}

func (m *mockGradeRepo) BulkUpsert(ctx context.Context, grades []models.Grade) error {
	for i := range grades {
		_ = m.Upsert(ctx, &grades[i])
	}
	return nil
}

func (m *mockGradeRepo) ListByAssessments(ctx context.Context, assessmentIDs []string) ([]models.Grade, error) {
	var result []models.Grade
	for _, id := range assessmentIDs {
		for _, grade := range m.stored {
			if grade.AssessmentID == id {
				result = append(result, grade)
			}
		}
	}
	return result, nil
}

func (m *mockGradeRepo) ListByAssessmentsAndStudent(ctx context.Context, assessmentIDs []string, studentID string) ([]models.Grade, error) {
	grades, _ := m.ListByAssessments(ctx, assessmentIDs)
	var result []models.Grade
	for _, grade := range grades {
		if grade.StudentID == studentID {
			result = append(result, grade)
		}
	}
	return result, nil
}

type mockAssessmentReader struct {
	assessments map[string]*models.Assessment
}

func (m *mockAssessmentReader) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	if assessment, ok := m.assessments[id]; ok {
		return assessment, nil
	}
	return nil, sql.ErrNoRows
}

func newGradeFixture(repo *mockGradeRepo) *GradeService {
	assessments := &mockAssessmentReader{assessments: map[string]*models.Assessment{
		"quiz":       {ID: "quiz", CourseID: "c1", Type: models.AssessmentQuiz, MaxMarks: 20},
		"final":      {ID: "final", CourseID: "c1", Type: models.AssessmentFinalExam, MaxMarks: 40},
		"attendance": {ID: "attendance", CourseID: "c1", Type: models.AssessmentAttendance, MaxMarks: 10},
	}}
	return NewGradeService(repo, assessments, nil, nil, nil)
}

func TestUpsertGrade(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	grade, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		AssessmentID: "quiz", StudentID: "alice", MarksObtained: 18,
	})
	require.NoError(t, err)
	assert.InDelta(t, 18.0, grade.MarksObtained, 1e-9)
	assert.Len(t, repo.stored, 1)
}

func TestUpsertGradeZeroMarksAllowed(t *testing.T) {
	svc := newGradeFixture(&mockGradeRepo{})

	grade, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		AssessmentID: "quiz", StudentID: "alice", MarksObtained: 0,
	})
	require.NoError(t, err)
	assert.Zero(t, grade.MarksObtained)
}

func TestUpsertGradeTwiceKeepsOneRow(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{AssessmentID: "quiz", StudentID: "alice", MarksObtained: 12})
	require.NoError(t, err)
	_, err = svc.Upsert(context.Background(), UpsertGradeRequest{AssessmentID: "quiz", StudentID: "alice", MarksObtained: 17})
	require.NoError(t, err)

	require.Len(t, repo.stored, 1)
	assert.InDelta(t, 17.0, repo.stored["quiz|alice"].MarksObtained, 1e-9)
}

func TestUpsertGradeRejectsOutOfRange(t *testing.T) {
	svc := newGradeFixture(&mockGradeRepo{})

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{AssessmentID: "quiz", StudentID: "alice", MarksObtained: 25})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Upsert(context.Background(), UpsertGradeRequest{AssessmentID: "quiz", StudentID: "alice", MarksObtained: -1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpsertGradeRejectsAttendanceAssessment(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{AssessmentID: "attendance", StudentID: "alice", MarksObtained: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.stored)
}

func TestUpsertGradeUnknownAssessment(t *testing.T) {
	svc := newGradeFixture(&mockGradeRepo{})

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{AssessmentID: "nope", StudentID: "alice", MarksObtained: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBulkUpsertGrades(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	count, err := svc.BulkUpsert(context.Background(), BulkUpsertGradesRequest{Items: []UpsertGradeRequest{
		{AssessmentID: "quiz", StudentID: "alice", MarksObtained: 18},
		{AssessmentID: "quiz", StudentID: "bob", MarksObtained: 12},
		{AssessmentID: "final", StudentID: "alice", MarksObtained: 35},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, repo.stored, 3)
}

func TestBulkUpsertGradesAllOrNothing(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	// The second entry is out of range, so nothing is written.
	_, err := svc.BulkUpsert(context.Background(), BulkUpsertGradesRequest{Items: []UpsertGradeRequest{
		{AssessmentID: "quiz", StudentID: "alice", MarksObtained: 18},
		{AssessmentID: "quiz", StudentID: "bob", MarksObtained: 99},
	}})
	require.Error(t, err)
	assert.Empty(t, repo.stored)
}

func TestBulkUpsertGradesRejectsDuplicatePair(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	_, err := svc.BulkUpsert(context.Background(), BulkUpsertGradesRequest{Items: []UpsertGradeRequest{
		{AssessmentID: "quiz", StudentID: "alice", MarksObtained: 18},
		{AssessmentID: "quiz", StudentID: "alice", MarksObtained: 15},
	}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.stored)
}

func TestBulkUpsertGradesRejectsEmptyBatch(t *testing.T) {
	svc := newGradeFixture(&mockGradeRepo{})

	_, err := svc.BulkUpsert(context.Background(), BulkUpsertGradesRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
