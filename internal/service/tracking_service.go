package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
	"study_platform_backend/internal/util"
	"study_platform_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// 超过 30 秒无事件视为空闲，空闲部分不计入有效学习时间
	idleGapSeconds = 30.0

	// 卡片全部翻完的基准张数
	flashcardTargetFlips = 20

	// 完成判定线
	completionThreshold = 80.0

	// 热力图网格边长（像素）
	hotZoneGridSize = 50
)

type TrackingService struct {
	TrackingRepo *repository.TrackingRepository
	MaterialRepo *repository.MaterialRepository
	ProfileRepo  *repository.ProfileRepository
}

func NewTrackingService(
	trackingRepo *repository.TrackingRepository,
	materialRepo *repository.MaterialRepository,
	profileRepo *repository.ProfileRepository,
) *TrackingService {
	return &TrackingService{
		TrackingRepo: trackingRepo,
		MaterialRepo: materialRepo,
		ProfileRepo:  profileRepo,
	}
}

// StartSession 开始一次学习会话
func (s *TrackingService) StartSession(userID uint, req *model.SessionStartRequest) (*model.StudySession, error) {
	material, err := s.MaterialRepo.FindByID(req.MaterialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMaterialNotFound
		}
		return nil, err
	}
	if material.UserID != userID {
		return nil, util.ErrPermissionDenied
	}

	// 同一 session_id 重复上报直接返回已有会话
	if existing, err := s.TrackingRepo.FindSession(req.SessionID); err == nil {
		if existing.UserID != userID {
			return nil, util.ErrPermissionDenied
		}
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prior, err := s.TrackingRepo.FindSessionsByMaterial(material.ID)
	if err != nil {
		return nil, err
	}

	session := &model.StudySession{
		SessionID:        req.SessionID,
		UserID:           userID,
		MaterialID:       material.ID,
		StartedAt:        time.Now(),
		IsActive:         true,
		RevisitsCount:    len(prior),
		DeviceType:       req.Device.DeviceType,
		Browser:          req.Device.Browser,
		ScreenResolution: req.Device.ScreenResolution,
	}
	if err := s.TrackingRepo.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Sync 批量写入事件并根据完整事件日志重算会话计数器
// 客户端上报的聚合数不被信任
func (s *TrackingService) Sync(userID uint, req *model.SessionSyncRequest) (*model.StudySession, error) {
	session, err := s.findOwnedSession(userID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, util.ErrSessionClosed
	}

	if err := s.ingest(session, req.Events, req.SectionTimes, &req.Heatmap); err != nil {
		return nil, err
	}

	if len(req.SectionsVisited) > 0 {
		visited, err := json.Marshal(req.SectionsVisited)
		if err == nil {
			session.SectionsVisited = visited
		}
	}

	if err := s.recompute(session); err != nil {
		return nil, err
	}
	if err := s.TrackingRepo.UpdateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// EndSession 收尾：最后一批事件、最终指标、热区聚合、材料累计统计
func (s *TrackingService) EndSession(userID uint, req *model.SessionEndRequest) (*model.SessionMetrics, error) {
	session, err := s.findOwnedSession(userID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, util.ErrSessionClosed
	}

	if err := s.ingest(session, req.Events, req.Sections, &req.Heatmap); err != nil {
		return nil, err
	}
	if err := s.recompute(session); err != nil {
		return nil, err
	}

	material, err := s.MaterialRepo.FindByID(session.MaterialID)
	if err != nil {
		return nil, err
	}

	completion, completed := s.computeCompletion(session, material.MaterialType)
	session.CompletionPercentage = completion
	session.Completed = completed
	session.EngagementScore = engagementScore(
		session.ActiveTimeSeconds,
		session.TotalInteractions,
		session.MaxScrollDepth,
		completed,
	)

	now := time.Now()
	session.EndedAt = &now
	session.IsActive = false
	exitType := req.ExitType
	if exitType == "" {
		exitType = model.ExitNormal
	}
	session.ExitType = &exitType

	if err := s.aggregateHotZones(session); err != nil {
		logger.Log.Warn("Hot zone aggregation failed",
			zap.String("session_id", session.SessionID), zap.Error(err))
	}

	if err := s.TrackingRepo.UpdateSession(session); err != nil {
		return nil, err
	}

	// 会话指标并入材料累计统计，完成度和投入度取最近一次会话
	material.TotalStudyTimeSeconds += session.TotalTimeSeconds
	material.ActiveStudyTimeSeconds += session.ActiveTimeSeconds
	material.TotalInteractions += session.TotalInteractions
	material.SessionsCount++
	material.CompletionPercentage = completion
	material.EngagementScore = session.EngagementScore
	material.LastStudiedAt = &now
	if err := s.MaterialRepo.Update(material); err != nil {
		return nil, err
	}

	if minutes := session.ActiveTimeSeconds / 60; minutes > 0 {
		if err := s.ProfileRepo.AddStudyMinutes(userID, minutes); err != nil {
			logger.Log.Warn("Failed to add study minutes", zap.Uint("user_id", userID), zap.Error(err))
		}
	}

	return &model.SessionMetrics{
		TotalTimeSeconds:     session.TotalTimeSeconds,
		ActiveTimeSeconds:    session.ActiveTimeSeconds,
		TotalInteractions:    session.TotalInteractions,
		MaxScrollDepth:       session.MaxScrollDepth,
		CompletionPercentage: completion,
		Completed:            completed,
		EngagementScore:      session.EngagementScore,
	}, nil
}

func (s *TrackingService) findOwnedSession(userID uint, sessionID string) (*model.StudySession, error) {
	session, err := s.TrackingRepo.FindSession(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return session, nil
}

// ingest 落地一批事件、分节停留和热力图采样
func (s *TrackingService) ingest(session *model.StudySession, events []model.TrackedEvent, sections []model.TrackedSection, heatmap *model.HeatmapBatch) error {
	if len(events) > 0 {
		rows := make([]model.InteractionEvent, 0, len(events))
		for _, e := range events {
			metadata, _ := json.Marshal(e.Metadata)
			rows = append(rows, model.InteractionEvent{
				SessionID:             session.ID,
				EventType:             e.EventType,
				ElementID:             e.ElementID,
				ElementType:           e.ElementType,
				ElementText:           util.TruncateRunes(e.ElementText, 500),
				XPosition:             e.XPosition,
				YPosition:             e.YPosition,
				ScrollPosition:        e.ScrollPosition,
				ViewportHeight:        e.ViewportHeight,
				TimeSinceSessionStart: e.TimeSinceSessionStart,
				Metadata:              metadata,
			})
		}
		if err := s.TrackingRepo.AppendEvents(rows); err != nil {
			return err
		}
	}

	now := time.Now()
	for _, sec := range sections {
		st := &model.SectionTimeTracking{
			SessionID:             session.ID,
			SectionID:             sec.SectionID,
			SectionType:           sec.SectionType,
			SectionContentPreview: util.TruncateRunes(sec.ContentPreview, 500),
			FirstViewAt:           now,
			LastViewAt:            now,
			TotalTimeSeconds:      sec.TimeSeconds,
			ViewCount:             1,
			InteractionCount:      sec.Interactions,
			ScrollDepthPct:        sec.ScrollDepthPct,
		}
		if err := s.TrackingRepo.UpsertSectionTime(st); err != nil {
			return err
		}
	}

	if heatmap != nil && (len(heatmap.Clicks) > 0 || len(heatmap.MouseMovements) > 0 || len(heatmap.ScrollPoints) > 0) {
		if err := s.mergeHeatmap(session, heatmap); err != nil {
			return err
		}
	}
	return nil
}

// mergeHeatmap 把新采样追加进该会话的热力图行
func (s *TrackingService) mergeHeatmap(session *model.StudySession, batch *model.HeatmapBatch) error {
	heatmap, err := s.TrackingRepo.FindHeatmap(session.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		heatmap = &model.HeatmapData{SessionID: session.ID}
	} else if err != nil {
		return err
	}

	clicks := appendPoints(heatmap.Clicks, batch.Clicks)
	movements := appendPoints(heatmap.MouseMovements, batch.MouseMovements)
	scrolls := appendScrollPoints(heatmap.ScrollPoints, batch.ScrollPoints)

	heatmap.Clicks = clicks.json
	heatmap.MouseMovements = movements.json
	heatmap.ScrollPoints = scrolls.json
	heatmap.DataPointsCount = clicks.count + movements.count + scrolls.count

	return s.TrackingRepo.SaveHeatmap(heatmap)
}

type mergedPoints struct {
	json  []byte
	count int
}

func appendPoints(existing []byte, incoming []model.HeatmapPoint) mergedPoints {
	var points []model.HeatmapPoint
	if len(existing) > 0 {
		json.Unmarshal(existing, &points)
	}
	points = append(points, incoming...)
	data, _ := json.Marshal(points)
	return mergedPoints{json: data, count: len(points)}
}

func appendScrollPoints(existing []byte, incoming []model.ScrollPoint) mergedPoints {
	var points []model.ScrollPoint
	if len(existing) > 0 {
		json.Unmarshal(existing, &points)
	}
	points = append(points, incoming...)
	data, _ := json.Marshal(points)
	return mergedPoints{json: data, count: len(points)}
}

// recompute 从完整事件日志重算会话计数器
// 总时长取最大事件偏移，有效时长去掉超过 30 秒的空闲间隔
func (s *TrackingService) recompute(session *model.StudySession) error {
	events, err := s.TrackingRepo.FindEventsBySession(session.ID)
	if err != nil {
		return err
	}

	session.TotalInteractions = len(events)
	session.ScrollEvents = 0
	session.ClickEvents = 0
	session.HoverEvents = 0
	session.FocusChanges = 0

	maxOffset := 0.0
	maxScroll := session.MaxScrollDepth
	offsets := make([]float64, 0, len(events))

	for _, e := range events {
		offsets = append(offsets, e.TimeSinceSessionStart)
		if e.TimeSinceSessionStart > maxOffset {
			maxOffset = e.TimeSinceSessionStart
		}

		switch e.EventType {
		case model.EventScroll:
			session.ScrollEvents++
		case model.EventClick:
			session.ClickEvents++
		case model.EventHover:
			session.HoverEvents++
		case model.EventFocus, model.EventTabVisible, model.EventTabHidden:
			session.FocusChanges++
		}

		if depth := scrollDepthOf(&e); depth > maxScroll {
			maxScroll = depth
		}
	}

	sort.Float64s(offsets)
	idle := 0.0
	for i := 1; i < len(offsets); i++ {
		if gap := offsets[i] - offsets[i-1]; gap > idleGapSeconds {
			idle += gap - idleGapSeconds
		}
	}

	session.TotalTimeSeconds = int(maxOffset)
	session.IdleTimeSeconds = int(idle)
	session.ActiveTimeSeconds = session.TotalTimeSeconds - session.IdleTimeSeconds
	if session.ActiveTimeSeconds < 0 {
		session.ActiveTimeSeconds = 0
	}
	session.MaxScrollDepth = math.Min(100, maxScroll)
	return nil
}

// scrollDepthOf 从滚动事件推算页面深度百分比
func scrollDepthOf(e *model.InteractionEvent) float64 {
	if len(e.Metadata) > 0 {
		var meta map[string]interface{}
		if err := json.Unmarshal(e.Metadata, &meta); err == nil {
			if v, ok := meta["scroll_depth_percent"].(float64); ok {
				return v
			}
		}
	}
	return 0
}

// computeCompletion 按材料类型计算完成度
func (s *TrackingService) computeCompletion(session *model.StudySession, materialType model.MaterialType) (float64, bool) {
	switch materialType {
	case model.MaterialFlashcard:
		flips, err := s.TrackingRepo.CountEventsByType(session.ID, model.EventFlashcardFlip)
		if err != nil {
			return 0, false
		}
		completion := math.Min(100, float64(flips)/flashcardTargetFlips*100)
		return completion, flips >= flashcardTargetFlips

	case model.MaterialDecisionTree, model.MaterialMindMap:
		completion, ok := s.nodeExpandCompletion(session)
		if !ok {
			completion = session.MaxScrollDepth
		}
		return completion, completion >= completionThreshold

	default: // summary
		return session.MaxScrollDepth, session.MaxScrollDepth >= completionThreshold
	}
}

// nodeExpandCompletion 展开的不同节点数 / 总节点数
// 总节点数由前端在事件 metadata 里上报，缺失时退回滚动深度
func (s *TrackingService) nodeExpandCompletion(session *model.StudySession) (float64, bool) {
	events, err := s.TrackingRepo.FindEventsBySession(session.ID)
	if err != nil {
		return 0, false
	}

	expanded := make(map[string]bool)
	totalNodes := 0
	for _, e := range events {
		if e.EventType == model.EventNodeExpand && e.ElementID != "" {
			expanded[e.ElementID] = true
		}
		if len(e.Metadata) > 0 {
			var meta map[string]interface{}
			if err := json.Unmarshal(e.Metadata, &meta); err == nil {
				if v, ok := meta["total_nodes"].(float64); ok && int(v) > totalNodes {
					totalNodes = int(v)
				}
			}
		}
	}

	if totalNodes == 0 {
		return 0, false
	}
	return math.Min(100, float64(len(expanded))/float64(totalNodes)*100), true
}

// engagementScore 投入度 0-100
// 有效时长 40 分（5 分钟封顶）、交互 30 分（50 次封顶）、滚动深度 20 分、完成 10 分
func engagementScore(activeSeconds, interactions int, scrollDepth float64, completed bool) float64 {
	score := 40 * math.Min(1, float64(activeSeconds)/300)
	score += 30 * math.Min(1, float64(interactions)/50)
	score += 20 * (scrollDepth / 100)
	if completed {
		score += 10
	}
	return math.Min(100, score)
}

// aggregateHotZones 把点击聚合到 50px 网格，密度达阈值的格子记为热区
func (s *TrackingService) aggregateHotZones(session *model.StudySession) error {
	heatmap, err := s.TrackingRepo.FindHeatmap(session.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var clicks []model.HeatmapPoint
	if len(heatmap.Clicks) > 0 {
		if err := json.Unmarshal(heatmap.Clicks, &clicks); err != nil {
			return err
		}
	}
	zones := ComputeHotZones(clicks)

	data, err := json.Marshal(zones)
	if err != nil {
		return err
	}
	heatmap.HotZones = data
	return s.TrackingRepo.SaveHeatmap(heatmap)
}

// ComputeHotZones 网格密度聚合，阈值为 max(2, 点击总数的 10%)
func ComputeHotZones(clicks []model.HeatmapPoint) []model.HotZone {
	if len(clicks) == 0 {
		return nil
	}

	type cell struct{ gx, gy int }
	counts := make(map[cell]int)
	for _, c := range clicks {
		counts[cell{c.X / hotZoneGridSize, c.Y / hotZoneGridSize}]++
	}

	threshold := int(math.Ceil(float64(len(clicks)) * 0.1))
	if threshold < 2 {
		threshold = 2
	}

	var zones []model.HotZone
	for cl, count := range counts {
		if count >= threshold {
			zones = append(zones, model.HotZone{
				X:         cl.gx * hotZoneGridSize,
				Y:         cl.gy * hotZoneGridSize,
				Width:     hotZoneGridSize,
				Height:    hotZoneGridSize,
				Intensity: count,
			})
		}
	}

	// 按强度降序，再按坐标保证输出稳定
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Intensity != zones[j].Intensity {
			return zones[i].Intensity > zones[j].Intensity
		}
		if zones[i].Y != zones[j].Y {
			return zones[i].Y < zones[j].Y
		}
		return zones[i].X < zones[j].X
	})
	return zones
}

// SessionDetail 会话详情：基础指标加分节明细
type SessionDetail struct {
	Session  *model.StudySession         `json:"session"`
	Sections []model.SectionTimeTracking `json:"sections"`
	Heatmap  *model.HeatmapData          `json:"heatmap,omitempty"`
}

// GetSessionDetail 查看单个会话，只能看自己的
func (s *TrackingService) GetSessionDetail(userID uint, sessionID string) (*SessionDetail, error) {
	session, err := s.findOwnedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	sections, err := s.TrackingRepo.FindSectionTimes(session.ID)
	if err != nil {
		return nil, err
	}

	detail := &SessionDetail{Session: session, Sections: sections}
	if heatmap, err := s.TrackingRepo.FindHeatmap(session.ID); err == nil {
		detail.Heatmap = heatmap
	}
	return detail, nil
}

// CloseStaleSessions 清理长时间无活动的会话，由后台定时任务调用
func (s *TrackingService) CloseStaleSessions(maxIdle time.Duration) (int, error) {
	var sessions []model.StudySession
	cutoff := time.Now().Add(-maxIdle)
	err := s.TrackingRepo.DB.
		Where("is_active = ? AND updated_at < ?", true, cutoff).
		Find(&sessions).Error
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range sessions {
		session := &sessions[i]
		if err := s.recompute(session); err != nil {
			continue
		}

		material, err := s.MaterialRepo.FindByID(session.MaterialID)
		if err != nil {
			continue
		}
		completion, completed := s.computeCompletion(session, material.MaterialType)
		session.CompletionPercentage = completion
		session.Completed = completed
		session.EngagementScore = engagementScore(
			session.ActiveTimeSeconds, session.TotalInteractions, session.MaxScrollDepth, completed)

		now := time.Now()
		exitType := model.ExitTimeout
		session.EndedAt = &now
		session.IsActive = false
		session.ExitType = &exitType

		if err := s.TrackingRepo.UpdateSession(session); err != nil {
			continue
		}

		material.TotalStudyTimeSeconds += session.TotalTimeSeconds
		material.ActiveStudyTimeSeconds += session.ActiveTimeSeconds
		material.TotalInteractions += session.TotalInteractions
		material.SessionsCount++
		material.CompletionPercentage = completion
		material.EngagementScore = session.EngagementScore
		material.LastStudiedAt = &now
		if err := s.MaterialRepo.Update(material); err != nil {
			logger.Log.Warn("Failed to fold stale session into material",
				zap.Uint("material_id", material.ID), zap.Error(err))
		}
		closed++
	}

	if closed > 0 {
		logger.Log.Info(fmt.Sprintf("Closed %d stale study sessions", closed))
	}
	return closed, nil
}
