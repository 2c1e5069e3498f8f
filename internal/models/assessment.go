package models

import "time"

// AssessmentType classifies a gradable item and drives the aggregation rule
// applied to it.
type AssessmentType string

const (
	AssessmentAttendance AssessmentType = "ATTENDANCE"
	AssessmentQuiz       AssessmentType = "QUIZ"
	AssessmentAssignment AssessmentType = "ASSIGNMENT"
	AssessmentFinalExam  AssessmentType = "FINAL_EXAM"
)

// Valid returns true when the type is a supported value.
func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentAttendance, AssessmentQuiz, AssessmentAssignment, AssessmentFinalExam:
		return true
	default:
		return false
	}
}

// Assessment is a gradable column in a course gradebook.
type Assessment struct {
	ID        string         `db:"id" json:"id"`
	CourseID  string         `db:"course_id" json:"course_id"`
	Title     string         `db:"title" json:"title"`
	Type      AssessmentType `db:"type" json:"type"`
	MaxMarks  float64        `db:"max_marks" json:"max_marks"`
	Date      time.Time      `db:"date" json:"date"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
