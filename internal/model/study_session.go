package model

import (
	"time"

	"gorm.io/datatypes"
)

type ExitType string

const (
	ExitNormal       ExitType = "normal"
	ExitTimeout      ExitType = "timeout"
	ExitBrowserClose ExitType = "browser_close"
	ExitNavigation   ExitType = "navigation"
)

// StudySession 一次学习会话
// 计数器由服务端根据事件日志重算，会话关闭前单调不减
type StudySession struct {
	BaseModel
	SessionID  string   `gorm:"size:36;uniqueIndex;not null" json:"sessionId"`
	UserID     uint     `gorm:"index:idx_session_user;not null" json:"userId"`
	MaterialID uint     `gorm:"index;not null" json:"materialId"`
	Material   Material `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	StartedAt         time.Time  `gorm:"not null" json:"startedAt"`
	EndedAt           *time.Time `json:"endedAt"`
	TotalTimeSeconds  int        `gorm:"default:0" json:"totalTimeSeconds"`
	ActiveTimeSeconds int        `gorm:"default:0" json:"activeTimeSeconds"` // 去除空闲后的实际交互时间
	IdleTimeSeconds   int        `gorm:"default:0" json:"idleTimeSeconds"`

	TotalInteractions int `gorm:"default:0" json:"totalInteractions"`
	ScrollEvents      int `gorm:"default:0" json:"scrollEvents"`
	ClickEvents       int `gorm:"default:0" json:"clickEvents"`
	HoverEvents       int `gorm:"default:0" json:"hoverEvents"`
	FocusChanges      int `gorm:"default:0" json:"focusChanges"`

	SectionsVisited datatypes.JSON `json:"sectionsVisited"`
	MaxScrollDepth  float64        `gorm:"default:0" json:"maxScrollDepth"`
	RevisitsCount   int            `gorm:"default:0" json:"revisitsCount"`

	IsActive             bool      `gorm:"default:true;index" json:"isActive"`
	Completed            bool      `gorm:"default:false" json:"completed"`
	CompletionPercentage float64   `gorm:"default:0" json:"completionPercentage"`
	EngagementScore      float64   `gorm:"default:0" json:"engagementScore"`
	ExitType             *ExitType `gorm:"size:20" json:"exitType"`

	DeviceType       string `gorm:"size:20" json:"deviceType"`
	Browser          string `gorm:"size:50" json:"browser"`
	ScreenResolution string `gorm:"size:20" json:"screenResolution"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

type EventType string

const (
	EventClick         EventType = "click"
	EventScroll        EventType = "scroll"
	EventHover         EventType = "hover"
	EventFocus         EventType = "focus"
	EventFlashcardFlip EventType = "flashcard_flip"
	EventNodeExpand    EventType = "node_expand"
	EventNodeCollapse  EventType = "node_collapse"
	EventSectionView   EventType = "section_view"
	EventCopyText      EventType = "copy_text"
	EventTabVisible    EventType = "tab_visible"
	EventTabHidden     EventType = "tab_hidden"
	EventResumeStudy   EventType = "resume_study"
	EventPauseStudy    EventType = "pause_study"
)

// InteractionEvent 细粒度交互事件，只追加不修改
type InteractionEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint      `gorm:"index:idx_event_session;not null" json:"sessionId"`
	EventType EventType `gorm:"size:30;not null;index" json:"eventType"`

	ElementID   string `gorm:"size:255" json:"elementId"`
	ElementType string `gorm:"size:50" json:"elementType"`
	ElementText string `gorm:"type:text" json:"elementText"`

	XPosition      *int `json:"xPosition"`
	YPosition      *int `json:"yPosition"`
	ScrollPosition *int `json:"scrollPosition"`
	ViewportHeight *int `json:"viewportHeight"`

	Timestamp             time.Time      `gorm:"autoCreateTime;index:idx_event_session" json:"timestamp"`
	TimeSinceSessionStart float64        `gorm:"not null" json:"timeSinceSessionStart"`
	Metadata              datatypes.JSON `json:"metadata"`
}

func (InteractionEvent) TableName() string {
	return "interaction_events"
}

type SectionType string

const (
	SectionWeak       SectionType = "weak_section"
	SectionReview     SectionType = "review_section"
	SectionFlashcard  SectionType = "flashcard"
	SectionTreeNode   SectionType = "tree_node"
	SectionSummary    SectionType = "summary_block"
	SectionComparison SectionType = "comparison_table"
	SectionCodeBlock  SectionType = "code_block"
)

// SectionTimeTracking 按节累计停留时间，同一会话内按 SectionID upsert
type SectionTimeTracking struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint   `gorm:"index:idx_section_session;not null" json:"sessionId"`
	SectionID string `gorm:"size:255;not null;index:idx_section_session" json:"sectionId"`

	SectionType           SectionType `gorm:"size:50" json:"sectionType"`
	SectionContentPreview string      `gorm:"size:500" json:"sectionContentPreview"`

	FirstViewAt      time.Time `json:"firstViewAt"`
	LastViewAt       time.Time `json:"lastViewAt"`
	TotalTimeSeconds float64   `gorm:"default:0" json:"totalTimeSeconds"`
	ViewCount        int       `gorm:"default:0" json:"viewCount"`
	InteractionCount int       `gorm:"default:0" json:"interactionCount"`
	ScrollDepthPct   float64   `gorm:"default:0" json:"scrollDepthPercent"`
	FullyRead        bool      `gorm:"default:false" json:"fullyRead"`
	InteractedWith   bool      `gorm:"default:false" json:"interactedWith"`
}

func (SectionTimeTracking) TableName() string {
	return "section_time_tracking"
}

// HeatmapData 热力图原始采样与聚合结果，每个会话一行
type HeatmapData struct {
	ID        uint `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint `gorm:"uniqueIndex;not null" json:"sessionId"`

	Clicks         datatypes.JSON `json:"clicks"`         // [{x, y, timestamp}]
	MouseMovements datatypes.JSON `json:"mouseMovements"` // 客户端 100ms 采样
	ScrollPoints   datatypes.JSON `json:"scrollPoints"`   // [{position, timestamp}]
	HotZones       datatypes.JSON `json:"hotZones"`       // [{x, y, width, height, intensity}]

	DataPointsCount int       `gorm:"default:0" json:"dataPointsCount"`
	CapturedAt      time.Time `gorm:"autoCreateTime" json:"capturedAt"`
}

func (HeatmapData) TableName() string {
	return "heatmap_data"
}

// HeatmapPoint 热力图采样点
type HeatmapPoint struct {
	X         int   `json:"x"`
	Y         int   `json:"y"`
	Timestamp int64 `json:"timestamp"`
}

// ScrollPoint 滚动采样点
type ScrollPoint struct {
	Position  int   `json:"position"`
	Timestamp int64 `json:"timestamp"`
}

// HotZone 点击密度超过阈值的网格区域
type HotZone struct {
	X         int `json:"x"`
	Y         int `json:"y"`
	Width     int `json:"width"`
	Height    int `json:"height"`
	Intensity int `json:"intensity"`
}
