package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// QuizQuestion 单条测验题目，Questions JSON 数组的元素
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Topic         string   `json:"topic"`
	Explanation   string   `json:"explanation"`
}

// Quiz 每个文本唯一的初始测验，由 AI 生成后不可修改
type Quiz struct {
	BaseModel
	TextID                uint           `gorm:"uniqueIndex;not null" json:"textId"`
	Text                  Text           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Questions             datatypes.JSON `gorm:"not null" json:"questions"`
	TotalQuestions        int            `gorm:"default:20" json:"totalQuestions"`
	GenerationPrompt      string         `gorm:"type:text" json:"-"` // 仅保留前 1000 字符
	GenerationTimeSeconds int            `json:"generationTimeSeconds"`
	ModelUsed             string         `gorm:"size:50" json:"modelUsed"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) GetQuestions() ([]QuizQuestion, error) {
	var questions []QuizQuestion
	if err := json.Unmarshal(q.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// TopicUniverse 返回测验覆盖的全部主题，保持首次出现顺序
func (q *Quiz) TopicUniverse() []string {
	questions, err := q.GetQuestions()
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var topics []string
	for _, question := range questions {
		if question.Topic != "" && !seen[question.Topic] {
			seen[question.Topic] = true
			topics = append(topics, question.Topic)
		}
	}
	return topics
}

// ValidateQuestions 校验题目结构：数量一致、4 个选项、答案为 A-D
func ValidateQuestions(questions []QuizQuestion, expected int) error {
	if len(questions) != expected {
		return fmt.Errorf("期望 %d 道题目，实际 %d 道", expected, len(questions))
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("第 %d 题缺少题干", i+1)
		}
		if len(q.Options) != 4 {
			return fmt.Errorf("第 %d 题必须有 4 个选项", i+1)
		}
		answer := strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
		if answer != "A" && answer != "B" && answer != "C" && answer != "D" {
			return fmt.Errorf("第 %d 题答案无效: %s", i+1, q.CorrectAnswer)
		}
		if strings.TrimSpace(q.Topic) == "" {
			return fmt.Errorf("第 %d 题缺少主题标签", i+1)
		}
	}
	return nil
}
