package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse-api/internal/models"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

type gradeRepository interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	BulkUpsert(ctx context.Context, grades []models.Grade) error
	ListByAssessments(ctx context.Context, assessmentIDs []string) ([]models.Grade, error)
	ListByAssessmentsAndStudent(ctx context.Context, assessmentIDs []string, studentID string) ([]models.Grade, error)
}

type assessmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
}

// GradeService is the grade ledger: idempotent per-(assessment, student)
// mark upserts with server-side bounds enforcement.
type GradeService struct {
	repo        gradeRepository
	assessments assessmentReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeRepository, assessments assessmentReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, assessments: assessments, cache: cache, validator: validate, logger: logger}
}

// UpsertGradeRequest represents a single mark entry.
type UpsertGradeRequest struct {
	AssessmentID  string  `json:"assessment_id" validate:"required"`
	StudentID     string  `json:"student_id" validate:"required"`
	MarksObtained float64 `json:"marks_obtained"`
}

// BulkUpsertGradesRequest applies several mark entries as one batch. The
// batch is all-or-nothing: one invalid entry rejects the whole request.
type BulkUpsertGradesRequest struct {
	Items []UpsertGradeRequest `json:"items" validate:"required,min=1,dive"`
}

// Upsert writes one mark. Marks outside [0, maxMarks] are rejected here, not
// just in the UI.
func (s *GradeService) Upsert(ctx context.Context, req UpsertGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	assessment, err := s.loadAssessment(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if err := validateMarks(assessment, req.MarksObtained); err != nil {
		return nil, err
	}
	grade := &models.Grade{AssessmentID: req.AssessmentID, StudentID: req.StudentID, MarksObtained: req.MarksObtained}
	if err := s.repo.Upsert(ctx, grade); err != nil {
		return nil, storageError(err, "failed to upsert grade")
	}
	s.invalidateGradebook(ctx, assessment.CourseID)
	return grade, nil
}

// BulkUpsert validates every entry against its assessment first, then applies
// the batch in a single transaction.
func (s *GradeService) BulkUpsert(ctx context.Context, req BulkUpsertGradesRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	assessments := make(map[string]*models.Assessment)
	courses := make(map[string]struct{})
	seen := make(map[string]struct{}, len(req.Items))
	grades := make([]models.Grade, len(req.Items))
	for i, item := range req.Items {
		key := item.AssessmentID + "|" + item.StudentID
		if _, ok := seen[key]; ok {
			return 0, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("duplicate entry for student %s", item.StudentID))
		}
		seen[key] = struct{}{}
		assessment, ok := assessments[item.AssessmentID]
		if !ok {
			loaded, err := s.loadAssessment(ctx, item.AssessmentID)
			if err != nil {
				return 0, err
			}
			assessments[item.AssessmentID] = loaded
			assessment = loaded
		}
		if err := validateMarks(assessment, item.MarksObtained); err != nil {
			return 0, err
		}
		courses[assessment.CourseID] = struct{}{}
		grades[i] = models.Grade{AssessmentID: item.AssessmentID, StudentID: item.StudentID, MarksObtained: item.MarksObtained}
	}
	if err := s.repo.BulkUpsert(ctx, grades); err != nil {
		return 0, storageError(err, "failed to bulk upsert grades")
	}
	for courseID := range courses {
		s.invalidateGradebook(ctx, courseID)
	}
	return len(grades), nil
}

// GradesForAssessments returns every mark belonging to the assessments.
func (s *GradeService) GradesForAssessments(ctx context.Context, assessmentIDs []string) ([]models.Grade, error) {
	grades, err := s.repo.ListByAssessments(ctx, assessmentIDs)
	if err != nil {
		return nil, storageError(err, "failed to list grades")
	}
	return grades, nil
}

func (s *GradeService) loadAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.assessments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, storageError(err, "failed to load assessment")
	}
	return assessment, nil
}

func validateMarks(assessment *models.Assessment, marks float64) error {
	if assessment.Type == models.AssessmentAttendance {
		return appErrors.Clone(appErrors.ErrValidation, "attendance marks are derived from the attendance ledger")
	}
	if marks < 0 || marks > assessment.MaxMarks {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("marks must be between 0 and %g", assessment.MaxMarks))
	}
	return nil
}

func (s *GradeService) invalidateGradebook(ctx context.Context, courseID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, fmt.Sprintf("gradebook:%s:*", courseID))
	}
}
