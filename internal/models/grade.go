package models

import "time"

// Grade is a per-assessment, per-student mark. Unique per (assessment,
// student) with upsert semantics on write.
type Grade struct {
	ID            string    `db:"id" json:"id"`
	AssessmentID  string    `db:"assessment_id" json:"assessment_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	MarksObtained float64   `db:"marks_obtained" json:"marks_obtained"`
	DateEntered   time.Time `db:"date_entered" json:"date_entered"`
}
