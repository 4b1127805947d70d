package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

const PassingScore = 80.0

// AnswerDetail 单题作答明细，Answers JSON 数组的元素
type AnswerDetail struct {
	QuestionIndex  int    `json:"question_index"`
	Question       string `json:"question"`
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Topic          string `json:"topic"`
	Explanation    string `json:"explanation,omitempty"` // 仅答错时返回
}

// QuizAttempt 一次测验作答记录，创建后不可修改
type QuizAttempt struct {
	BaseModel
	UserID           uint           `gorm:"index:idx_user_quiz;not null" json:"userId"`
	QuizID           uint           `gorm:"index:idx_user_quiz;not null" json:"quizId"`
	Quiz             Quiz           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AttemptNumber    int            `gorm:"not null" json:"attemptNumber"`
	Score            float64        `gorm:"not null" json:"score"`
	Answers          datatypes.JSON `json:"answers"`
	WeakTopics       datatypes.JSON `json:"weakTopics"` // 按错误频次降序
	TimeSpentSeconds int            `gorm:"default:0" json:"timeSpentSeconds"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) Passed() bool {
	return a.Score >= PassingScore
}

func (a *QuizAttempt) GetAnswers() ([]AnswerDetail, error) {
	var answers []AnswerDetail
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *QuizAttempt) GetWeakTopics() []string {
	var topics []string
	if err := json.Unmarshal(a.WeakTopics, &topics); err != nil {
		return nil
	}
	return topics
}
