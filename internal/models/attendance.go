package models

import "time"

// AttendanceRecord stores a single per-day presence row. The row is unique
// per (course, student, day); re-marking a day overwrites it.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceSummary is derived on every read and never persisted.
// TotalClasses counts the distinct session dates the course has recorded,
// not the dates the student has a row for.
type AttendanceSummary struct {
	TotalClasses    int     `json:"total_classes"`
	AttendedClasses int     `json:"attended_classes"`
	Percentage      float64 `json:"percentage"`
	GradePoints     int     `json:"grade_points"`
}
