package models

import "time"

// Course is the unit students enroll into and assessments hang off.
type Course struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Title      string    `db:"title" json:"title"`
	TeacherID  *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	QuizPolicy string    `db:"quiz_policy" json:"quiz_policy"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
