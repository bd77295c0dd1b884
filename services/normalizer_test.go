package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-study-backend/models"
)

func TestNormalizeOptions(t *testing.T) {
	out := NormalizeOptions([]string{" Hà Nội ", "Huế", "Hà Nội", "", "  ", "Đà Nẵng"})
	assert.Equal(t, []string{"Hà Nội", "Huế", "Đà Nẵng"}, out)
}

func TestNormalizeAnswersLetters(t *testing.T) {
	options := []string{"Hà Nội", "Huế", "Đà Nẵng", "Cần Thơ"}

	out := NormalizeAnswers([]string{"a"}, options)
	assert.Equal(t, []string{"Hà Nội"}, out)

	out = NormalizeAnswers([]string{"B", " c "}, options)
	assert.Equal(t, []string{"Huế", "Đà Nẵng"}, out)

	// Text nguyên văn được giữ nguyên
	out = NormalizeAnswers([]string{"Cần Thơ"}, options)
	assert.Equal(t, []string{"Cần Thơ"}, out)

	// Chữ cái ngoài phạm vi options giữ nguyên
	out = NormalizeAnswers([]string{"f"}, options)
	assert.Equal(t, []string{"f"}, out)
}

func TestAnswersWithinOptions(t *testing.T) {
	options := []string{"A", "B", "C"}

	assert.True(t, answersWithinOptions([]string{"A"}, options))
	assert.True(t, answersWithinOptions([]string{"A", "C"}, options))
	assert.False(t, answersWithinOptions([]string{"D"}, options))
	assert.False(t, answersWithinOptions(nil, options))
}

func TestEnsureMultiAnswerMajority(t *testing.T) {
	questions := []GeneratedQuestion{
		{Type: models.QuestionMultipleChoice, Question: "Q1", Options: []string{"A", "B", "C"}, CorrectAnswers: []string{"A"}},
		{Type: models.QuestionMultipleChoice, Question: "Q2", Options: []string{"A", "B", "C"}, CorrectAnswers: []string{"B"}},
		{Type: models.QuestionMultipleChoice, Question: "Q3", Options: []string{"A", "B", "C"}, CorrectAnswers: []string{"C"}},
	}

	EnsureMultiAnswerMajority(questions)

	// 3 câu multiple_choice -> ngưỡng 2 câu phải có >1 đáp án
	multi := 0
	for _, q := range questions {
		if len(q.CorrectAnswers) > 1 {
			multi++
		}
	}
	assert.Equal(t, 2, multi)

	// Đáp án bổ sung phải là một option hợp lệ, không trùng đáp án gốc
	require.Len(t, questions[0].CorrectAnswers, 2)
	assert.Equal(t, "A", questions[0].CorrectAnswers[0])
	assert.Equal(t, "B", questions[0].CorrectAnswers[1])
}

func TestEnsureMultiAnswerMajorityAlreadySatisfied(t *testing.T) {
	questions := []GeneratedQuestion{
		{Type: models.QuestionMultipleChoice, Question: "Q1", Options: []string{"A", "B"}, CorrectAnswers: []string{"A", "B"}},
		{Type: models.QuestionSingleChoice, Question: "Q2", Options: []string{"A", "B"}, CorrectAnswers: []string{"A"}},
	}

	EnsureMultiAnswerMajority(questions)

	// 1 câu multiple_choice đã có nhiều đáp án -> giữ nguyên
	assert.Len(t, questions[0].CorrectAnswers, 2)
	// single_choice không bao giờ bị đụng tới
	assert.Len(t, questions[1].CorrectAnswers, 1)
}

func TestEnsureMultiAnswerMajorityNoMultipleChoice(t *testing.T) {
	questions := []GeneratedQuestion{
		{Type: models.QuestionSingleChoice, Question: "Q1", Options: []string{"A", "B"}, CorrectAnswers: []string{"A"}},
		{Type: models.QuestionTrueFalse, Question: "Q2", Options: []string{"True", "False"}, CorrectAnswers: []string{"True"}},
	}

	EnsureMultiAnswerMajority(questions)

	assert.Len(t, questions[0].CorrectAnswers, 1)
	assert.Len(t, questions[1].CorrectAnswers, 1)
}
