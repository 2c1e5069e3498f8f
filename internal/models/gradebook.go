package models

import "fmt"

// QuizPolicy is the "best N of M quizzes" configuration. Only Keep affects
// the aggregate; Pool names the expected number of quizzes for display.
type QuizPolicy struct {
	Keep int    `json:"keep"`
	Pool int    `json:"pool"`
	Raw  string `json:"raw"`
}

// ParseQuizPolicy parses policy strings such as "Best 2 of 3 Quizzes".
func ParseQuizPolicy(raw string) (QuizPolicy, bool) {
	var keep, pool int
	n, err := fmt.Sscanf(raw, "Best %d of %d Quizzes", &keep, &pool)
	if err != nil || n != 2 {
		return QuizPolicy{}, false
	}
	if keep < 1 || pool < keep {
		return QuizPolicy{}, false
	}
	return QuizPolicy{Keep: keep, Pool: pool, Raw: raw}, true
}

// GradebookStudent identifies a row owner in the gradebook.
type GradebookStudent struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// PromotionRow is the per-student summary of weighted components used for
// pass/advancement decisions.
type PromotionRow struct {
	StudentID       string  `json:"student_id"`
	AttendanceScore float64 `json:"attendance_score"`
	QuizScore       float64 `json:"quiz_score"`
	FinalScore      float64 `json:"final_score"`
	Total           float64 `json:"total"`
}

// GradebookView is the read-only merged projection of assessments x students
// x marks plus derived promotion totals. Marks is keyed by student then
// assessment; the attendance column holds the synthesized grade points, which
// are never written back to the grade ledger.
type GradebookView struct {
	CourseID    string             `json:"course_id"`
	CourseCode  string             `json:"course_code"`
	Policy      string             `json:"policy"`
	Editable    bool               `json:"editable"`
	Assessments []Assessment       `json:"assessments"`
	Students    []GradebookStudent `json:"students"`
	Marks       map[string]map[string]float64 `json:"marks"`
	Promotion   []PromotionRow     `json:"promotion"`
}
