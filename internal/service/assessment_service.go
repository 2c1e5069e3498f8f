package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse-api/internal/models"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

type assessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error)
	CountByCourseAndType(ctx context.Context, courseID string, assessmentType models.AssessmentType) (int, error)
	Delete(ctx context.Context, id string) error
}

// AssessmentService manages gradebook columns.
type AssessmentService struct {
	repo      assessmentRepository
	courses   courseReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssessmentService constructs the assessment service.
func NewAssessmentService(repo assessmentRepository, courses courseReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AssessmentService{repo: repo, courses: courses, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("assessment_type", func(fl validator.FieldLevel) bool {
		return models.AssessmentType(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// CreateAssessmentRequest describes a new gradebook column.
type CreateAssessmentRequest struct {
	Title    string  `json:"title" validate:"required"`
	Type     string  `json:"type" validate:"required,assessment_type"`
	MaxMarks float64 `json:"max_marks" validate:"required,gt=0"`
	Date     string  `json:"date" validate:"required"`
}

// Create adds an assessment to a course. A course holds at most one
// attendance-typed assessment; creating a second one is rejected so the
// synthesized attendance column stays unambiguous.
func (s *AssessmentService) Create(ctx context.Context, courseID string, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	date, err := parseDay(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, storageError(err, "failed to load course")
	}
	assessmentType := models.AssessmentType(strings.ToUpper(req.Type))
	if assessmentType == models.AssessmentAttendance {
		count, err := s.repo.CountByCourseAndType(ctx, courseID, models.AssessmentAttendance)
		if err != nil {
			return nil, storageError(err, "failed to check attendance assessments")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already has an attendance assessment")
		}
	}
	assessment := &models.Assessment{
		CourseID: courseID,
		Title:    req.Title,
		Type:     assessmentType,
		MaxMarks: req.MaxMarks,
		Date:     date,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, storageError(err, "failed to create assessment")
	}
	s.invalidateGradebook(ctx, courseID)
	return assessment, nil
}

// ListByCourse returns the course's assessments ascending by date.
func (s *AssessmentService) ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	assessments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to list assessments")
	}
	return assessments, nil
}

// Delete removes an assessment; its grade rows go with it.
func (s *AssessmentService) Delete(ctx context.Context, id string) error {
	assessment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return storageError(err, "failed to load assessment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storageError(err, "failed to delete assessment")
	}
	s.invalidateGradebook(ctx, assessment.CourseID)
	return nil
}

func (s *AssessmentService) invalidateGradebook(ctx context.Context, courseID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, fmt.Sprintf("gradebook:%s:*", courseID))
	}
}
