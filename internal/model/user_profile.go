package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// UserProfile 学习档案，与 User 一对一
// 由服务层在提交测验等事务内显式维护，不使用 ORM 钩子
type UserProfile struct {
	BaseModel
	UserID                uint           `gorm:"uniqueIndex;not null" json:"userId"`
	WeakTopics            datatypes.JSON `json:"weakTopics"` // 累计弱项主题（去重）
	StudyStreak           int            `gorm:"default:0" json:"studyStreak"`
	LastStudyDate         *time.Time     `json:"lastStudyDate"`
	TotalStudyTimeMinutes int            `gorm:"default:0" json:"totalStudyTimeMinutes"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p *UserProfile) GetWeakTopics() []string {
	var topics []string
	if len(p.WeakTopics) == 0 {
		return topics
	}
	if err := json.Unmarshal(p.WeakTopics, &topics); err != nil {
		return nil
	}
	return topics
}

// MergeWeakTopics 将新弱项并入累计列表，保持原有顺序，不产生重复
func (p *UserProfile) MergeWeakTopics(topics []string) {
	existing := p.GetWeakTopics()
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	for _, t := range topics {
		if !seen[t] {
			seen[t] = true
			existing = append(existing, t)
		}
	}
	data, err := json.Marshal(existing)
	if err != nil {
		return
	}
	p.WeakTopics = data
}

// TouchStudyDay 更新连续学习天数
// 间隔恰好 1 天递增；同一天不变；中断或首次学习重置为 1
func (p *UserProfile) TouchStudyDay(today time.Time) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	if p.LastStudyDate == nil {
		p.StudyStreak = 1
	} else {
		last := *p.LastStudyDate
		lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, today.Location())
		days := int(day.Sub(lastDay).Hours() / 24)

		switch {
		case days == 0:
			// 同一天再次学习，保持现状
		case days == 1:
			p.StudyStreak++
		default:
			p.StudyStreak = 1
		}
	}

	p.LastStudyDate = &day
}
