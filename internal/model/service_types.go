package model

// ---------- 测验提交 ----------

type SubmittedAnswer struct {
	QuestionIndex  int    `json:"question_index"`
	SelectedAnswer string `json:"selected_answer"`
}

type QuizSubmission struct {
	Answers          []SubmittedAnswer `json:"answers" binding:"required"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
}

// QuizResult 提交测验后的完整评分结果
type QuizResult struct {
	Attempt         *QuizAttempt   `json:"attempt"`
	Score           float64        `json:"score"`
	CorrectCount    int            `json:"correct_count"`
	TotalQuestions  int            `json:"total_questions"`
	Passed          bool           `json:"passed"`
	WeakTopics      []string       `json:"weak_topics"`
	TopicErrors     map[string]int `json:"topic_errors"`
	DetailedAnswers []AnswerDetail `json:"detailed_answers"`
	Message         string         `json:"message"`
}

// ---------- 材料推荐 ----------

type RecommendationReason string

const (
	ReasonSuccess          RecommendationReason = "success"
	ReasonInsufficientData RecommendationReason = "insufficient_data"
	ReasonNoPositiveData   RecommendationReason = "no_positive_data"
	ReasonLowImprovement   RecommendationReason = "low_improvement"
	ReasonGlobalStats      RecommendationReason = "global_stats"
	ReasonDefault          RecommendationReason = "default"
)

type MaterialRecommendation struct {
	HasRecommendation   bool                     `json:"has_recommendation"`
	RecommendedType     MaterialType             `json:"recommended_type,omitempty"`
	ExpectedImprovement float64                  `json:"expected_improvement"`
	AllEffectiveness    map[MaterialType]float64 `json:"all_effectiveness"`
	Reason              RecommendationReason     `json:"reason"`
	Message             string                   `json:"message"`
}

// ---------- 行为跟踪 ----------

type DeviceInfo struct {
	DeviceType       string `json:"device_type"`
	Browser          string `json:"browser"`
	ScreenResolution string `json:"screen_resolution"`
}

type SessionStartRequest struct {
	SessionID  string     `json:"session_id" binding:"required"`
	MaterialID uint       `json:"material_id" binding:"required"`
	Device     DeviceInfo `json:"device"`
}

// TrackedEvent 客户端上报的单个交互事件
type TrackedEvent struct {
	EventType             EventType              `json:"event_type"`
	ElementID             string                 `json:"element_id"`
	ElementType           string                 `json:"element_type"`
	ElementText           string                 `json:"element_text"`
	XPosition             *int                   `json:"x_position"`
	YPosition             *int                   `json:"y_position"`
	ScrollPosition        *int                   `json:"scroll_position"`
	ViewportHeight        *int                   `json:"viewport_height"`
	TimeSinceSessionStart float64                `json:"time_since_session_start"`
	Metadata              map[string]interface{} `json:"metadata"`
}

// TrackedSection 客户端上报的分节停留数据
type TrackedSection struct {
	SectionID      string      `json:"section_id"`
	SectionType    SectionType `json:"section_type"`
	ContentPreview string      `json:"content_preview"`
	TimeSeconds    float64     `json:"time_seconds"`
	ScrollDepthPct float64     `json:"scroll_depth_percent"`
	Interactions   int         `json:"interactions"`
}

type HeatmapBatch struct {
	Clicks         []HeatmapPoint `json:"clicks"`
	MouseMovements []HeatmapPoint `json:"mouse_movements"`
	ScrollPoints   []ScrollPoint  `json:"scroll_points"`
}

// SessionSyncRequest 周期同步的批量载荷
// 服务端只信任事件日志，客户端的聚合计数仅用于 sections_visited 标签
type SessionSyncRequest struct {
	SessionID       string           `json:"session_id" binding:"required"`
	Events          []TrackedEvent   `json:"events"`
	SectionTimes    []TrackedSection `json:"section_times"`
	Heatmap         HeatmapBatch     `json:"heatmap_data"`
	SectionsVisited []string         `json:"sections_visited"`
}

type SessionEndRequest struct {
	SessionID string           `json:"session_id" binding:"required"`
	ExitType  ExitType         `json:"exit_type"`
	Events    []TrackedEvent   `json:"events"`
	Sections  []TrackedSection `json:"section_times"`
	Heatmap   HeatmapBatch     `json:"heatmap_data"`
}

// SessionMetrics 会话结束时计算出的最终指标
type SessionMetrics struct {
	TotalTimeSeconds     int     `json:"total_time_seconds"`
	ActiveTimeSeconds    int     `json:"active_time_seconds"`
	TotalInteractions    int     `json:"total_interactions"`
	MaxScrollDepth       float64 `json:"max_scroll_depth"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Completed            bool    `json:"completed"`
	EngagementScore      float64 `json:"engagement_score"`
}

// ---------- 分析 ----------

// StudyOverview 用户维度的学习聚合
type StudyOverview struct {
	TotalSessions       int     `json:"total_sessions"`
	TotalStudySeconds   int     `json:"total_study_seconds"`
	ActiveStudySeconds  int     `json:"active_study_seconds"`
	AverageEngagement   float64 `json:"average_engagement"`
	MaterialsStudied    int     `json:"materials_studied"`
	CompletedMaterials  int     `json:"completed_materials"`
	AverageCompletion   float64 `json:"average_completion"`
	TotalInteractions   int     `json:"total_interactions"`
}

// MaterialHeatmap 某材料全部会话合并后的热力图
type MaterialHeatmap struct {
	MaterialID    uint      `json:"material_id"`
	SessionsCount int       `json:"sessions_count"`
	ClickSamples  int       `json:"click_samples"`
	HotZones      []HotZone `json:"hot_zones"`
}

// AttemptStats 用户的历史作答统计
type AttemptStats struct {
	TotalAttempts    int     `json:"total_attempts"`
	TextsStudied     int     `json:"texts_studied"`
	AverageScore     float64 `json:"average_score"`
	TextsPassed      int     `json:"texts_passed"`
	TotalTimeMinutes int     `json:"total_time_minutes"`
}
