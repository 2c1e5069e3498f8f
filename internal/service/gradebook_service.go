package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse-api/internal/models"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

type coursePolicyStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	UpdateQuizPolicy(ctx context.Context, id, policy string) error
}

type assessmentLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error)
}

type enrollmentLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
	Exists(ctx context.Context, courseID, studentID string) (bool, error)
}

type gradeLister interface {
	ListByAssessments(ctx context.Context, assessmentIDs []string) ([]models.Grade, error)
	ListByAssessmentsAndStudent(ctx context.Context, assessmentIDs []string, studentID string) ([]models.Grade, error)
}

type attendanceSummarizer interface {
	Summary(ctx context.Context, courseID, studentID string) (*models.AttendanceSummary, error)
}

// GradebookService assembles the two reporting views. The attendance ledger
// and the grade ledger are independent sources of truth; this service pulls
// both, synthesizes the attendance column, applies the best-N quiz rule and
// emits read-only view models. It never writes to either ledger.
type GradebookService struct {
	courses       coursePolicyStore
	assessments   assessmentLister
	enrollments   enrollmentLister
	grades        gradeLister
	attendance    attendanceSummarizer
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	defaultPolicy string
}

// NewGradebookService constructs the gradebook service.
func NewGradebookService(courses coursePolicyStore, assessments assessmentLister, enrollments enrollmentLister, grades gradeLister, attendance attendanceSummarizer, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, defaultPolicy string) *GradebookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPolicy == "" {
		defaultPolicy = "Best 2 of 3 Quizzes"
	}
	return &GradebookService{
		courses:       courses,
		assessments:   assessments,
		enrollments:   enrollments,
		grades:        grades,
		attendance:    attendance,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		defaultPolicy: defaultPolicy,
	}
}

// BuildTeacherGradebook returns the all-students view for a course.
func (s *GradebookService) BuildTeacherGradebook(ctx context.Context, courseID string) (*models.GradebookView, error) {
	cacheKey := fmt.Sprintf("gradebook:%s:teacher", courseID)
	if s.cache.Enabled() {
		var cached models.GradebookView
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}
	start := time.Now()

	course, policy, err := s.loadCoursePolicy(ctx, courseID)
	if err != nil {
		return nil, err
	}
	assessments, err := s.assessments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to list assessments")
	}
	roster, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to list enrollments")
	}
	grades, err := s.grades.ListByAssessments(ctx, assessmentIDs(assessments))
	if err != nil {
		return nil, storageError(err, "failed to list grades")
	}

	students := make([]models.GradebookStudent, len(roster))
	for i, enrollment := range roster {
		students[i] = models.GradebookStudent{StudentID: enrollment.StudentID, Name: enrollment.StudentName}
	}
	marks := marksByStudent(grades)

	// A partially built view would misrepresent a student's standing, so a
	// failed summary fails the whole build.
	summaries := make(map[string]*models.AttendanceSummary, len(roster))
	for _, enrollment := range roster {
		summary, err := s.attendance.Summary(ctx, courseID, enrollment.StudentID)
		if err != nil {
			return nil, err
		}
		summaries[enrollment.StudentID] = summary
	}
	overrideAttendanceRows(assessments, marks, summaries)

	view := &models.GradebookView{
		CourseID:    courseID,
		CourseCode:  course.Code,
		Policy:      policy.Raw,
		Editable:    true,
		Assessments: assessments,
		Students:    students,
		Marks:       marks,
		Promotion:   promotionRows(assessments, students, marks, policy),
	}
	if s.metrics != nil {
		s.metrics.ObserveGradebookBuild("teacher", time.Since(start))
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, view, 0)
	}
	return view, nil
}

// BuildStudentGradebook returns the single-student, read-only view.
func (s *GradebookService) BuildStudentGradebook(ctx context.Context, courseID, studentID string) (*models.GradebookView, error) {
	start := time.Now()

	course, policy, err := s.loadCoursePolicy(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.enrollments.Exists(ctx, courseID, studentID)
	if err != nil {
		return nil, storageError(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this course")
	}
	assessments, err := s.assessments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to list assessments")
	}
	grades, err := s.grades.ListByAssessmentsAndStudent(ctx, assessmentIDs(assessments), studentID)
	if err != nil {
		return nil, storageError(err, "failed to list grades")
	}

	marks := marksByStudent(grades)
	summary, err := s.attendance.Summary(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	overrideAttendanceRows(assessments, marks, map[string]*models.AttendanceSummary{studentID: summary})

	students := []models.GradebookStudent{{StudentID: studentID}}
	view := &models.GradebookView{
		CourseID:    courseID,
		CourseCode:  course.Code,
		Policy:      policy.Raw,
		Editable:    false,
		Assessments: assessments,
		Students:    students,
		Marks:       marks,
		Promotion:   promotionRows(assessments, students, marks, policy),
	}
	if s.metrics != nil {
		s.metrics.ObserveGradebookBuild("student", time.Since(start))
	}
	return view, nil
}

// SetPolicyRequest updates the course quiz aggregation policy.
type SetPolicyRequest struct {
	Policy string `json:"policy" validate:"required"`
}

// SetPolicy stores a new quiz policy for the course.
func (s *GradebookService) SetPolicy(ctx context.Context, courseID string, req SetPolicyRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid policy payload")
	}
	if _, ok := models.ParseQuizPolicy(req.Policy); !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown quiz policy %q", req.Policy))
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return storageError(err, "failed to load course")
	}
	if err := s.courses.UpdateQuizPolicy(ctx, courseID, req.Policy); err != nil {
		return storageError(err, "failed to update quiz policy")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, fmt.Sprintf("gradebook:%s:*", courseID))
	}
	return nil
}

func (s *GradebookService) loadCoursePolicy(ctx context.Context, courseID string) (*models.Course, models.QuizPolicy, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.QuizPolicy{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, models.QuizPolicy{}, storageError(err, "failed to load course")
	}
	raw := course.QuizPolicy
	if raw == "" {
		raw = s.defaultPolicy
	}
	policy, ok := models.ParseQuizPolicy(raw)
	if !ok {
		return nil, models.QuizPolicy{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown quiz policy %q", raw))
	}
	return course, policy, nil
}

func assessmentIDs(assessments []models.Assessment) []string {
	ids := make([]string, len(assessments))
	for i, assessment := range assessments {
		ids[i] = assessment.ID
	}
	return ids
}

func marksByStudent(grades []models.Grade) map[string]map[string]float64 {
	marks := make(map[string]map[string]float64)
	for _, grade := range grades {
		if marks[grade.StudentID] == nil {
			marks[grade.StudentID] = make(map[string]float64)
		}
		marks[grade.StudentID][grade.AssessmentID] = grade.MarksObtained
	}
	return marks
}

// overrideAttendanceRows injects the derived attendance grade points into the
// course's attendance column, replacing any persisted value for display. The
// override is applied exactly once per build and is never written back.
func overrideAttendanceRows(assessments []models.Assessment, marks map[string]map[string]float64, summaries map[string]*models.AttendanceSummary) {
	attendance := firstOfType(assessments, models.AssessmentAttendance)
	if attendance == nil {
		return
	}
	for studentID, summary := range summaries {
		if summary == nil {
			continue
		}
		if marks[studentID] == nil {
			marks[studentID] = make(map[string]float64)
		}
		marks[studentID][attendance.ID] = float64(summary.GradePoints)
	}
}

func promotionRows(assessments []models.Assessment, students []models.GradebookStudent, marks map[string]map[string]float64, policy models.QuizPolicy) []models.PromotionRow {
	rows := make([]models.PromotionRow, len(students))
	for i, student := range students {
		rows[i] = promotionRow(student.StudentID, assessments, marks[student.StudentID], policy)
	}
	return rows
}

// promotionRow combines the attendance column, the quiz aggregate and the
// final exam into the per-student total, clamped at 100. The clamp is applied
// after summation rather than normalizing weights, mirroring the grading
// scheme this replaces.
func promotionRow(studentID string, assessments []models.Assessment, studentMarks map[string]float64, policy models.QuizPolicy) models.PromotionRow {
	attendance := componentScore(assessments, studentMarks, models.AssessmentAttendance)
	quiz := quizAggregate(assessments, studentMarks, policy.Keep)
	final := componentScore(assessments, studentMarks, models.AssessmentFinalExam)
	return models.PromotionRow{
		StudentID:       studentID,
		AttendanceScore: attendance,
		QuizScore:       quiz,
		FinalScore:      final,
		Total:           math.Min(attendance+quiz+final, 100),
	}
}

// quizAggregate averages the best marks across the course's quiz columns. A
// missing grade counts as 0 in the pool. When fewer quizzes exist than the
// policy keeps, the average runs over the actual count, never the nominal
// pool size.
func quizAggregate(assessments []models.Assessment, studentMarks map[string]float64, keep int) float64 {
	var scores []float64
	for _, assessment := range assessments {
		if assessment.Type != models.AssessmentQuiz {
			continue
		}
		scores = append(scores, studentMarks[assessment.ID])
	}
	if len(scores) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	if keep > len(scores) {
		keep = len(scores)
	}
	sum := 0.0
	for _, score := range scores[:keep] {
		sum += score
	}
	return sum / float64(keep)
}

// componentScore picks the student's mark for the first assessment of the
// given type, 0 when either is absent.
func componentScore(assessments []models.Assessment, studentMarks map[string]float64, assessmentType models.AssessmentType) float64 {
	assessment := firstOfType(assessments, assessmentType)
	if assessment == nil {
		return 0
	}
	return studentMarks[assessment.ID]
}

func firstOfType(assessments []models.Assessment, assessmentType models.AssessmentType) *models.Assessment {
	for i := range assessments {
		if assessments[i].Type == assessmentType {
			return &assessments[i]
		}
	}
	return nil
}
