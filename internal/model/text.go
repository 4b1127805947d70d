package model

import (
	"math"
	"strings"
)

type TextDifficulty string

const (
	DifficultyBeginner     TextDifficulty = "beginner"
	DifficultyIntermediate TextDifficulty = "intermediate"
	DifficultyAdvanced     TextDifficulty = "advanced"
)

type TextStatus string

const (
	TextDraft    TextStatus = "draft"
	TextActive   TextStatus = "active"
	TextArchived TextStatus = "archived"
)

// Text 学术文本，由教师上传，内容可从 TXT 文件提取
type Text struct {
	BaseModel
	Title                string         `gorm:"size:255;not null" json:"title"`
	Description          string         `gorm:"type:text" json:"description"`
	Content              string         `gorm:"type:longtext" json:"content"`
	Topic                string         `gorm:"size:100;default:'General';index" json:"topic"`
	Difficulty           TextDifficulty `gorm:"size:20;default:'intermediate'" json:"difficulty"`
	Status               TextStatus     `gorm:"size:20;default:'draft';index:idx_status_order" json:"status"`
	EstimatedTimeMinutes int            `gorm:"default:30" json:"estimatedTimeMinutes"`
	Order                int            `gorm:"default:0;index:idx_status_order" json:"order"`
	HasQuiz              bool           `gorm:"default:false" json:"hasQuiz"` // 生成测验后由服务层置位
	FilePath             string         `gorm:"size:255" json:"-"`
	FileType             string         `gorm:"size:10" json:"fileType,omitempty"`
	CreatedByID          uint           `gorm:"index" json:"createdById"`
}

func (Text) TableName() string {
	return "texts"
}

func (t *Text) WordCount() int {
	return len(strings.Fields(t.Content))
}

// EstimateReadingTime 按 200 词/分钟估算阅读时长，最少 5 分钟
func (t *Text) EstimateReadingTime() int {
	minutes := int(math.Round(float64(t.WordCount()) / 200))
	if minutes < 5 {
		minutes = 5
	}
	return minutes
}
