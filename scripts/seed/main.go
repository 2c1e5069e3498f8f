// Development seeder: creates the schema and a small data set for manual
// testing. Safe to run repeatedly.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/edupulse/edupulse-api/internal/models"
	"github.com/edupulse/edupulse-api/internal/repository"
	"github.com/edupulse/edupulse-api/pkg/config"
	"github.com/edupulse/edupulse-api/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS departments (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    department_id UUID REFERENCES departments(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    teacher_id UUID REFERENCES users(id),
    quiz_policy TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id),
    student_id UUID NOT NULL REFERENCES users(id),
    enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (course_id, student_id)
);

CREATE TABLE IF NOT EXISTS assessments (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id),
    title TEXT NOT NULL,
    type TEXT NOT NULL,
    max_marks DOUBLE PRECISION NOT NULL,
    date DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_records (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id),
    student_id UUID NOT NULL REFERENCES users(id),
    date DATE NOT NULL,
    present BOOLEAN NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (course_id, student_id, date)
);

CREATE TABLE IF NOT EXISTS grades (
    id UUID PRIMARY KEY,
    assessment_id UUID NOT NULL REFERENCES assessments(id),
    student_id UUID NOT NULL REFERENCES users(id),
    marks_obtained DOUBLE PRECISION NOT NULL,
    date_entered TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (assessment_id, student_id)
);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	departmentID := seedDepartment(ctx, db, "Computer Science")

	users := repository.NewUserRepository(db)
	teacherID := seedUser(ctx, db, users, "Dewi Ananta", "dewi@edupulse.dev", "teacher123", models.RoleTeacher, departmentID)
	aliceID := seedUser(ctx, db, users, "Alice Tan", "alice@edupulse.dev", "student123", models.RoleStudent, departmentID)
	bobID := seedUser(ctx, db, users, "Bob Wijaya", "bob@edupulse.dev", "student123", models.RoleStudent, departmentID)

	courses := repository.NewCourseRepository(db)
	courseID := uuid.NewString()
	course := &models.Course{
		ID:         courseID,
		Code:       "CS101",
		Title:      "Programming 101",
		TeacherID:  &teacherID,
		QuizPolicy: cfg.Gradebook.DefaultQuizPolicy,
	}
	if err := courses.Create(ctx, course); err != nil {
		log.Printf("course CS101 already present, reusing")
		if err := db.GetContext(ctx, &courseID, `SELECT id FROM courses WHERE code = 'CS101'`); err != nil {
			log.Fatalf("failed to load existing course: %v", err)
		}
	}

	enrollments := repository.NewEnrollmentRepository(db)
	for _, studentID := range []string{aliceID, bobID} {
		if exists, _ := enrollments.Exists(ctx, courseID, studentID); exists {
			continue
		}
		enrollment := &models.Enrollment{
			ID:         uuid.NewString(),
			CourseID:   courseID,
			StudentID:  studentID,
			EnrolledAt: time.Now().UTC(),
		}
		if err := enrollments.Create(ctx, enrollment); err != nil {
			log.Fatalf("failed to enroll student: %v", err)
		}
	}

	assessments := repository.NewAssessmentRepository(db)
	quizID := seedAssessment(ctx, db, assessments, courseID, "Quiz 1", models.AssessmentQuiz, 20, "2026-02-09")
	finalID := seedAssessment(ctx, db, assessments, courseID, "Midterm Exam", models.AssessmentFinalExam, 40, "2026-03-16")
	seedAssessment(ctx, db, assessments, courseID, "Attendance", models.AssessmentAttendance, 10, "2026-02-02")

	grades := repository.NewGradeRepository(db)
	seedGrade(ctx, grades, quizID, aliceID, 18)
	seedGrade(ctx, grades, quizID, bobID, 12)
	seedGrade(ctx, grades, finalID, aliceID, 35)
	seedGrade(ctx, grades, finalID, bobID, 28)

	attendance := repository.NewAttendanceRepository(db)
	days := []struct {
		date    string
		present map[string]bool
	}{
		{"2026-02-02", map[string]bool{aliceID: true, bobID: true}},
		{"2026-02-04", map[string]bool{aliceID: true, bobID: false}},
		{"2026-02-06", map[string]bool{aliceID: true, bobID: true}},
		{"2026-02-09", map[string]bool{aliceID: false, bobID: false}},
	}
	for _, day := range days {
		date, err := time.Parse("2006-01-02", day.date)
		if err != nil {
			log.Fatalf("bad seed date %s: %v", day.date, err)
		}
		for studentID, present := range day.present {
			record := &models.AttendanceRecord{
				ID:        uuid.NewString(),
				CourseID:  courseID,
				StudentID: studentID,
				Date:      date,
				Present:   present,
			}
			if _, err := attendance.Upsert(ctx, record); err != nil {
				log.Fatalf("failed to record attendance: %v", err)
			}
		}
	}

	log.Printf("seed complete: course %s with 2 students, 3 assessments, 4 attendance days", courseID)
}

func seedDepartment(ctx context.Context, db *sqlx.DB, name string) string {
	id := uuid.NewString()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO departments (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`, id, name); err != nil {
		log.Fatalf("failed to seed department: %v", err)
	}
	if err := db.GetContext(ctx, &id, `SELECT id FROM departments WHERE name = $1`, name); err != nil {
		log.Fatalf("failed to load department: %v", err)
	}
	return id
}

func seedUser(ctx context.Context, db *sqlx.DB, users *repository.UserRepository, name, email, password string, role models.UserRole, departmentID string) string {
	if existing, err := users.FindByEmail(ctx, email); err == nil {
		return existing.ID
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Verified:     true,
		DepartmentID: &departmentID,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("failed to seed user %s: %v", email, err)
	}
	return user.ID
}

func seedAssessment(ctx context.Context, db *sqlx.DB, assessments *repository.AssessmentRepository, courseID, title string, assessmentType models.AssessmentType, maxMarks float64, day string) string {
	var id string
	err := db.GetContext(ctx, &id, `SELECT id FROM assessments WHERE course_id = $1 AND title = $2`, courseID, title)
	if err == nil {
		return id
	}
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		log.Fatalf("bad seed date %s: %v", day, err)
	}
	assessment := &models.Assessment{
		ID:       uuid.NewString(),
		CourseID: courseID,
		Title:    title,
		Type:     assessmentType,
		MaxMarks: maxMarks,
		Date:     date,
	}
	if err := assessments.Create(ctx, assessment); err != nil {
		log.Fatalf("failed to seed assessment %s: %v", title, err)
	}
	return assessment.ID
}

func seedGrade(ctx context.Context, grades *repository.GradeRepository, assessmentID, studentID string, marks float64) {
	grade := &models.Grade{
		ID:            uuid.NewString(),
		AssessmentID:  assessmentID,
		StudentID:     studentID,
		MarksObtained: marks,
		DateEntered:   time.Now().UTC(),
	}
	if err := grades.Upsert(ctx, grade); err != nil {
		log.Fatalf("failed to seed grade: %v", err)
	}
}
