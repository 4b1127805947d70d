package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type MaterialType string

const (
	MaterialFlashcard    MaterialType = "flashcard"
	MaterialDecisionTree MaterialType = "decision_tree"
	MaterialMindMap      MaterialType = "mind_map"
	MaterialSummary      MaterialType = "summary"
)

// MaterialTypes 全部材料类型，推荐统计按此顺序遍历
var MaterialTypes = []MaterialType{
	MaterialFlashcard,
	MaterialDecisionTree,
	MaterialMindMap,
	MaterialSummary,
}

func (t MaterialType) Valid() bool {
	switch t {
	case MaterialFlashcard, MaterialDecisionTree, MaterialMindMap, MaterialSummary:
		return true
	}
	return false
}

// ContentKind 材料内容的格式标签：HTML 片段或决策树 JSON
type ContentKind string

const (
	ContentHTML     ContentKind = "html"
	ContentTreeJSON ContentKind = "tree_json"
)

// Material AI 生成的个性化学习材料
// 统计字段由 TrackingService 在每次会话结束时累加
type Material struct {
	BaseModel
	UserID       uint           `gorm:"index:idx_material_user;not null" json:"userId"`
	TextID       uint           `gorm:"index;not null" json:"textId"`
	Text         Text           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AttemptID    uint           `gorm:"index;not null" json:"attemptId"` // 触发生成的作答记录
	MaterialType MaterialType   `gorm:"size:20;not null" json:"materialType"`
	ContentKind  ContentKind    `gorm:"size:10;default:'html'" json:"contentKind"`
	Content      string         `gorm:"type:longtext" json:"content"`
	WeakTopics   datatypes.JSON `json:"weakTopics"` // 生成时的弱项快照

	GeneratedAt           *time.Time `json:"generatedAt"`
	GenerationTimeSeconds int        `json:"generationTimeSeconds"`
	ModelUsed             string     `gorm:"size:50" json:"modelUsed"`

	// 累计使用统计
	TotalStudyTimeSeconds  int        `gorm:"default:0" json:"totalStudyTimeSeconds"`
	ActiveStudyTimeSeconds int        `gorm:"default:0" json:"activeStudyTimeSeconds"`
	TotalInteractions      int        `gorm:"default:0" json:"totalInteractions"`
	CompletionPercentage   float64    `gorm:"default:0" json:"completionPercentage"` // 最近一次会话的值
	SessionsCount          int        `gorm:"default:0" json:"sessionsCount"`
	LastStudiedAt          *time.Time `json:"lastStudiedAt"`
	EngagementScore        float64    `gorm:"default:0" json:"engagementScore"` // 最近一次会话的值
}

func (Material) TableName() string {
	return "materials"
}

func (m *Material) GetWeakTopics() []string {
	var topics []string
	if err := json.Unmarshal(m.WeakTopics, &topics); err != nil {
		return nil
	}
	return topics
}

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestProcessing RequestStatus = "processing"
	RequestCompleted  RequestStatus = "completed"
	RequestFailed     RequestStatus = "failed"
)

// MaterialRequest 材料生成请求，前端轮询其状态
type MaterialRequest struct {
	BaseModel
	UserID                 uint          `gorm:"index;not null" json:"userId"`
	TextID                 uint          `gorm:"not null" json:"textId"`
	AttemptID              uint          `gorm:"not null" json:"attemptId"`
	MaterialType           MaterialType  `gorm:"size:20;not null" json:"materialType"`
	Status                 RequestStatus `gorm:"size:20;default:'pending';index" json:"status"`
	ErrorMessage           string        `gorm:"type:text" json:"-"`
	WasRecommended         bool          `gorm:"default:false" json:"wasRecommended"`
	FollowedRecommendation *bool         `json:"followedRecommendation"`
	MaterialID             *uint         `json:"materialId"`
}

func (MaterialRequest) TableName() string {
	return "material_requests"
}

// MaterialEffectiveness 材料有效性记录：同一文本前后两次成绩之差
// 仅作为推荐引擎的历史输入
type MaterialEffectiveness struct {
	BaseModel
	UserID       uint         `gorm:"index:idx_eff_user_text;not null" json:"userId"`
	TextID       uint         `gorm:"index:idx_eff_user_text;not null" json:"textId"`
	MaterialType MaterialType `gorm:"size:20;not null;index" json:"materialType"`
	ScoreBefore  float64      `json:"scoreBefore"`
	ScoreAfter   float64      `json:"scoreAfter"`
	Improvement  float64      `json:"improvement"`
}

func (MaterialEffectiveness) TableName() string {
	return "material_effectiveness"
}
