package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuizPolicy(t *testing.T) {
	policy, ok := ParseQuizPolicy("Best 2 of 3 Quizzes")
	assert.True(t, ok)
	assert.Equal(t, 2, policy.Keep)
	assert.Equal(t, 3, policy.Pool)
	assert.Equal(t, "Best 2 of 3 Quizzes", policy.Raw)

	policy, ok = ParseQuizPolicy("Best 3 of 4 Quizzes")
	assert.True(t, ok)
	assert.Equal(t, 3, policy.Keep)
	assert.Equal(t, 4, policy.Pool)
}

func TestParseQuizPolicyRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"Best of Quizzes",
		"Worst 2 of 3 Quizzes",
		"Best 0 of 3 Quizzes",
		"Best 4 of 3 Quizzes",
		"Best two of three Quizzes",
	}
	for _, raw := range cases {
		_, ok := ParseQuizPolicy(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}
}

func TestAssessmentTypeValid(t *testing.T) {
	assert.True(t, AssessmentQuiz.Valid())
	assert.True(t, AssessmentAttendance.Valid())
	assert.True(t, AssessmentAssignment.Valid())
	assert.True(t, AssessmentFinalExam.Valid())
	assert.False(t, AssessmentType("POP_QUIZ").Valid())
}
