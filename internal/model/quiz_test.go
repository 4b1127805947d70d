package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestions(n int) []QuizQuestion {
	questions := make([]QuizQuestion, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, QuizQuestion{
			Question:      "题干",
			Options:       []string{"甲", "乙", "丙", "丁"},
			CorrectAnswer: "A",
			Topic:         "主题",
		})
	}
	return questions
}

func TestValidateQuestions(t *testing.T) {
	assert.NoError(t, ValidateQuestions(validQuestions(20), 20))

	// 小写答案在校验阶段也接受，入库前才统一大写
	q := validQuestions(20)
	q[3].CorrectAnswer = " d "
	assert.NoError(t, ValidateQuestions(q, 20))
}

func TestValidateQuestionsRejectsBadInput(t *testing.T) {
	broken := func(mutate func([]QuizQuestion)) []QuizQuestion {
		q := validQuestions(20)
		mutate(q)
		return q
	}

	cases := []struct {
		name      string
		questions []QuizQuestion
	}{
		{"数量不对", validQuestions(19)},
		{"缺题干", broken(func(q []QuizQuestion) { q[0].Question = "  " })},
		{"选项不足", broken(func(q []QuizQuestion) { q[5].Options = []string{"甲", "乙"} })},
		{"答案越界", broken(func(q []QuizQuestion) { q[7].CorrectAnswer = "E" })},
		{"缺主题", broken(func(q []QuizQuestion) { q[9].Topic = "" })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, ValidateQuestions(tc.questions, 20))
		})
	}
}

func TestTopicUniverseKeepsFirstSeenOrder(t *testing.T) {
	questions := []QuizQuestion{
		{Topic: "突触"},
		{Topic: "细胞"},
		{Topic: "突触"},
		{Topic: "电位"},
		{Topic: "细胞"},
	}
	data, err := json.Marshal(questions)
	require.NoError(t, err)

	quiz := &Quiz{Questions: data}
	assert.Equal(t, []string{"突触", "细胞", "电位"}, quiz.TopicUniverse())
}

func TestAttemptPassed(t *testing.T) {
	assert.True(t, (&QuizAttempt{Score: 80}).Passed())
	assert.True(t, (&QuizAttempt{Score: 100}).Passed())
	assert.False(t, (&QuizAttempt{Score: 79.9}).Passed())
}
