package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse-api/internal/models"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

const dayFormat = "2006-01-02"

type attendanceRepository interface {
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error
	History(ctx context.Context, courseID string) ([]models.AttendanceRecord, error)
	ByDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRecord, error)
	DeleteByDate(ctx context.Context, courseID string, date time.Time) error
	SessionCount(ctx context.Context, courseID string) (int, error)
	PresentCount(ctx context.Context, courseID, studentID string) (int, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// AttendanceService is the attendance ledger: day-granular presence rows and
// the derived summary the gradebook synthesizes its attendance column from.
type AttendanceService struct {
	repo      attendanceRepository
	courses   courseReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, courses courseReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, courses: courses, cache: cache, validator: validate, logger: logger}
}

// MarkAttendanceEntry is one student's presence for the day.
type MarkAttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
}

// MarkAttendanceRequest marks a whole class day in one call. Calling it again
// for the same date converges to last-write-wins per student.
type MarkAttendanceRequest struct {
	Date    string                `json:"date" validate:"required"`
	Entries []MarkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// Mark upserts one presence row per entry, keyed by (course, student, day).
func (s *AttendanceService) Mark(ctx context.Context, courseID string, req MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	day, err := parseDay(req.Date)
	if err != nil {
		return err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return storageError(err, "failed to load course")
	}
	seen := map[string]struct{}{}
	records := make([]models.AttendanceRecord, len(req.Entries))
	for i, entry := range req.Entries {
		if _, ok := seen[entry.StudentID]; ok {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student %s listed twice in payload", entry.StudentID))
		}
		seen[entry.StudentID] = struct{}{}
		records[i] = models.AttendanceRecord{CourseID: courseID, StudentID: entry.StudentID, Date: day, Present: entry.Present}
	}
	if err := s.repo.BulkUpsert(ctx, records); err != nil {
		return storageError(err, "failed to mark attendance")
	}
	s.invalidateGradebook(ctx, courseID)
	return nil
}

// History returns the full ledger for the course, ascending by date.
func (s *AttendanceService) History(ctx context.Context, courseID string) ([]models.AttendanceRecord, error) {
	rows, err := s.repo.History(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to load attendance history")
	}
	return rows, nil
}

// ByDate returns one day's rows.
func (s *AttendanceService) ByDate(ctx context.Context, courseID, date string) ([]models.AttendanceRecord, error) {
	day, err := parseDay(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ByDate(ctx, courseID, day)
	if err != nil {
		return nil, storageError(err, "failed to load attendance day")
	}
	return rows, nil
}

// DeleteDay removes every row for the course/day. Deleting an unmarked day is
// a no-op.
func (s *AttendanceService) DeleteDay(ctx context.Context, courseID, date string) error {
	day, err := parseDay(date)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByDate(ctx, courseID, day); err != nil {
		return storageError(err, "failed to delete attendance day")
	}
	s.invalidateGradebook(ctx, courseID)
	return nil
}

// Summary recomputes the derived attendance summary on every call. The
// denominator is the count of distinct session dates for the course, so a
// student with no rows on a recorded day counts as absent for that day.
// Grade points are percentage/100*10 rounded half to even.
func (s *AttendanceService) Summary(ctx context.Context, courseID, studentID string) (*models.AttendanceSummary, error) {
	totalClasses, err := s.repo.SessionCount(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to count sessions")
	}
	if totalClasses == 0 {
		return &models.AttendanceSummary{}, nil
	}
	attended, err := s.repo.PresentCount(ctx, courseID, studentID)
	if err != nil {
		return nil, storageError(err, "failed to count attended days")
	}
	percentage := float64(attended) / float64(totalClasses) * 100
	return &models.AttendanceSummary{
		TotalClasses:    totalClasses,
		AttendedClasses: attended,
		Percentage:      math.Round(percentage*100) / 100,
		GradePoints:     int(math.RoundToEven(percentage / 10)),
	}, nil
}

func (s *AttendanceService) invalidateGradebook(ctx context.Context, courseID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, fmt.Sprintf("gradebook:%s:*", courseID))
	}
}

func parseDay(raw string) (time.Time, error) {
	day, err := time.Parse(dayFormat, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return day.UTC(), nil
}
