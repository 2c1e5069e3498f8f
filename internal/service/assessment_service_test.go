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

type mockAssessmentRepo struct {
	assessments map[string]*models.Assessment
	deleted     []string
}

func (m *mockAssessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	if m.assessments == nil {
		m.assessments = make(map[string]*models.Assessment)
	}
	if assessment.ID == "" {
		assessment.ID = "generated"
	}
	m.assessments[assessment.ID] = assessment
	return nil
}

func (m *mockAssessmentRepo) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	if assessment, ok := m.assessments[id]; ok {
		return assessment, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	var result []models.Assessment
	for _, assessment := range m.assessments {
		if assessment.CourseID == courseID {
			result = append(result, *assessment)
		}
	}
	return result, nil
}

func (m *mockAssessmentRepo) CountByCourseAndType(ctx context.Context, courseID string, assessmentType models.AssessmentType) (int, error) {
	count := 0
	for _, assessment := range m.assessments {
		if assessment.CourseID == courseID && assessment.Type == assessmentType {
			count++
		}
	}
	return count, nil
}

func (m *mockAssessmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.assessments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newAssessmentFixture(repo *mockAssessmentRepo) *AssessmentService {
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": {ID: "c1", Code: "CS101"}}}
	return NewAssessmentService(repo, courses, nil, nil, nil)
}

func TestCreateAssessment(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := newAssessmentFixture(repo)

	assessment, err := svc.Create(context.Background(), "c1", CreateAssessmentRequest{
		Title: "Quiz 1", Type: "QUIZ", MaxMarks: 20, Date: "2026-02-09",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentQuiz, assessment.Type)
	assert.Equal(t, "c1", assessment.CourseID)
	assert.Len(t, repo.assessments, 1)
}

func TestCreateAssessmentRejectsUnknownType(t *testing.T) {
	svc := newAssessmentFixture(&mockAssessmentRepo{})

	_, err := svc.Create(context.Background(), "c1", CreateAssessmentRequest{
		Title: "Pop Quiz", Type: "POP_QUIZ", MaxMarks: 20, Date: "2026-02-09",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateAssessmentRejectsNonPositiveMaxMarks(t *testing.T) {
	svc := newAssessmentFixture(&mockAssessmentRepo{})

	_, err := svc.Create(context.Background(), "c1", CreateAssessmentRequest{
		Title: "Quiz 1", Type: "QUIZ", MaxMarks: 0, Date: "2026-02-09",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateAssessmentRejectsSecondAttendanceColumn(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := newAssessmentFixture(repo)

	_, err := svc.Create(context.Background(), "c1", CreateAssessmentRequest{
		Title: "Attendance", Type: "ATTENDANCE", MaxMarks: 10, Date: "2026-02-02",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "c1", CreateAssessmentRequest{
		Title: "Attendance 2", Type: "ATTENDANCE", MaxMarks: 10, Date: "2026-03-02",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.assessments, 1)
}

func TestCreateAssessmentUnknownCourse(t *testing.T) {
	svc := newAssessmentFixture(&mockAssessmentRepo{})

	_, err := svc.Create(context.Background(), "missing", CreateAssessmentRequest{
		Title: "Quiz 1", Type: "QUIZ", MaxMarks: 20, Date: "2026-02-09",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteAssessment(t *testing.T) {
	repo := &mockAssessmentRepo{assessments: map[string]*models.Assessment{
		"quiz": {ID: "quiz", CourseID: "c1", Type: models.AssessmentQuiz, MaxMarks: 20},
	}}
	svc := newAssessmentFixture(repo)

	require.NoError(t, svc.Delete(context.Background(), "quiz"))
	assert.Equal(t, []string{"quiz"}, repo.deleted)
}

func TestDeleteAssessmentNotFound(t *testing.T) {
	svc := newAssessmentFixture(&mockAssessmentRepo{})

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
