package repository

import (
	"study_platform_backend/internal/model"

	"gorm.io/gorm"
)

type TrackingRepository struct {
	DB *gorm.DB
}

func NewTrackingRepository(db *gorm.DB) *TrackingRepository {
	return &TrackingRepository{DB: db}
}

func (r *TrackingRepository) CreateSession(session *model.StudySession) error {
	return r.DB.Create(session).Error
}

func (r *TrackingRepository) FindSession(sessionID string) (*model.StudySession, error) {
	var session model.StudySession
	err := r.DB.Where("session_id = ?", sessionID).First(&session).Error
	return &session, err
}

func (r *TrackingRepository) UpdateSession(session *model.StudySession) error {
	return r.DB.Save(session).Error
}

func (r *TrackingRepository) FindSessionsByUser(userID uint) ([]model.StudySession, error) {
	var sessions []model.StudySession
	err := r.DB.Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *TrackingRepository) FindSessionsByMaterial(materialID uint) ([]model.StudySession, error) {
	var sessions []model.StudySession
	err := r.DB.Where("material_id = ?", materialID).
		Order("started_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// ---------- 交互事件 ----------

// AppendEvents 事件日志只追加，批量写入
func (r *TrackingRepository) AppendEvents(events []model.InteractionEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(events, 200).Error
}

func (r *TrackingRepository) FindEventsBySession(sessionDBID uint) ([]model.InteractionEvent, error) {
	var events []model.InteractionEvent
	err := r.DB.Where("session_id = ?", sessionDBID).
		Order("time_since_session_start ASC").
		Find(&events).Error
	return events, err
}

func (r *TrackingRepository) CountEventsByType(sessionDBID uint, eventType model.EventType) (int64, error) {
	var count int64
	err := r.DB.Model(&model.InteractionEvent{}).
		Where("session_id = ? AND event_type = ?", sessionDBID, eventType).
		Count(&count).Error
	return count, err
}

// ---------- 分节停留 ----------

// UpsertSectionTime 同一会话同一分节只保留一行，累加时间和交互数
func (r *TrackingRepository) UpsertSectionTime(st *model.SectionTimeTracking) error {
	var existing model.SectionTimeTracking
	err := r.DB.Where("session_id = ? AND section_id = ?", st.SessionID, st.SectionID).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(st).Error
	}
	if err != nil {
		return err
	}

	existing.TotalTimeSeconds += st.TotalTimeSeconds
	existing.InteractionCount += st.InteractionCount
	existing.ViewCount++
	existing.LastViewAt = st.LastViewAt
	if st.ScrollDepthPct > existing.ScrollDepthPct {
		existing.ScrollDepthPct = st.ScrollDepthPct
	}
	if st.SectionContentPreview != "" {
		existing.SectionContentPreview = st.SectionContentPreview
	}
	existing.FullyRead = existing.ScrollDepthPct >= 90
	existing.InteractedWith = existing.InteractionCount > 0
	return r.DB.Save(&existing).Error
}

func (r *TrackingRepository) FindSectionTimes(sessionDBID uint) ([]model.SectionTimeTracking, error) {
	var sections []model.SectionTimeTracking
	err := r.DB.Where("session_id = ?", sessionDBID).
		Order("total_time_seconds DESC").
		Find(&sections).Error
	return sections, err
}

// ---------- 热力图 ----------

func (r *TrackingRepository) FindHeatmap(sessionDBID uint) (*model.HeatmapData, error) {
	var heatmap model.HeatmapData
	err := r.DB.Where("session_id = ?", sessionDBID).First(&heatmap).Error
	return &heatmap, err
}

func (r *TrackingRepository) SaveHeatmap(heatmap *model.HeatmapData) error {
	return r.DB.Save(heatmap).Error
}

func (r *TrackingRepository) FindHeatmapsByMaterial(materialID uint) ([]model.HeatmapData, error) {
	var heatmaps []model.HeatmapData
	err := r.DB.
		Joins("JOIN study_sessions ON study_sessions.id = heatmap_data.session_id").
		Where("study_sessions.material_id = ?", materialID).
		Find(&heatmaps).Error
	return heatmaps, err
}
