package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse-api/internal/models"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
	Exists(ctx context.Context, courseID, studentID string) (bool, error)
}

type enrollmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EnrollStudentRequest describes enrollment creation.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// EnrollmentService manages course rosters.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	users     enrollmentUserReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, users enrollmentUserReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, users: users, cache: cache, validator: validate, logger: logger}
}

// Enroll registers a student on a course roster.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID string, req EnrollStudentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, storageError(err, "failed to load course")
	}
	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storageError(err, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only students can be enrolled")
	}
	exists, err := s.repo.Exists(ctx, courseID, req.StudentID)
	if err != nil {
		return nil, storageError(err, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")
	}

	enrollment := &models.Enrollment{
		ID:         uuid.NewString(),
		CourseID:   courseID,
		StudentID:  req.StudentID,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, storageError(err, "failed to create enrollment")
	}
	s.invalidateGradebook(ctx, courseID)

	s.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("student_id", req.StudentID))
	return enrollment, nil
}

// Roster lists the students enrolled in a course, ordered by name.
func (s *EnrollmentService) Roster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, storageError(err, "failed to load course")
	}
	roster, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to list enrollments")
	}
	return roster, nil
}

// IsEnrolled reports whether the student belongs to the course roster.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	exists, err := s.repo.Exists(ctx, courseID, studentID)
	if err != nil {
		return false, storageError(err, "failed to check enrollment")
	}
	return exists, nil
}

func (s *EnrollmentService) invalidateGradebook(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, "gradebook:"+courseID+":*")
}
