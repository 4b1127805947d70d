package service

import (
	"encoding/json"
	"errors"
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
	"study_platform_backend/internal/util"

	"gorm.io/gorm"
)

type AnalyticsService struct {
	TrackingRepo *repository.TrackingRepository
	MaterialRepo *repository.MaterialRepository
}

func NewAnalyticsService(
	trackingRepo *repository.TrackingRepository,
	materialRepo *repository.MaterialRepository,
) *AnalyticsService {
	return &AnalyticsService{
		TrackingRepo: trackingRepo,
		MaterialRepo: materialRepo,
	}
}

// Overview 用户的学习行为总览
func (s *AnalyticsService) Overview(userID uint) (*model.StudyOverview, error) {
	sessions, err := s.TrackingRepo.FindSessionsByUser(userID)
	if err != nil {
		return nil, err
	}

	overview := &model.StudyOverview{}
	materials := make(map[uint]bool)
	completedMaterials := make(map[uint]bool)
	engagementSum := 0.0
	completionSum := 0.0
	closedCount := 0

	for i := range sessions {
		session := &sessions[i]
		overview.TotalSessions++
		overview.TotalStudySeconds += session.TotalTimeSeconds
		overview.ActiveStudySeconds += session.ActiveTimeSeconds
		overview.TotalInteractions += session.TotalInteractions
		materials[session.MaterialID] = true
		if session.Completed {
			completedMaterials[session.MaterialID] = true
		}
		if !session.IsActive {
			engagementSum += session.EngagementScore
			completionSum += session.CompletionPercentage
			closedCount++
		}
	}

	overview.MaterialsStudied = len(materials)
	overview.CompletedMaterials = len(completedMaterials)
	if closedCount > 0 {
		overview.AverageEngagement = engagementSum / float64(closedCount)
		overview.AverageCompletion = completionSum / float64(closedCount)
	}
	return overview, nil
}

// MaterialHeatmap 汇总某材料所有会话的点击热区
func (s *AnalyticsService) MaterialHeatmap(userID, materialID uint) (*model.MaterialHeatmap, error) {
	material, err := s.MaterialRepo.FindByID(materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMaterialNotFound
		}
		return nil, err
	}
	if material.UserID != userID {
		return nil, util.ErrPermissionDenied
	}

	heatmaps, err := s.TrackingRepo.FindHeatmapsByMaterial(materialID)
	if err != nil {
		return nil, err
	}

	var allClicks []model.HeatmapPoint
	for i := range heatmaps {
		var clicks []model.HeatmapPoint
		if len(heatmaps[i].Clicks) > 0 {
			if err := json.Unmarshal(heatmaps[i].Clicks, &clicks); err != nil {
				continue
			}
			allClicks = append(allClicks, clicks...)
		}
	}

	return &model.MaterialHeatmap{
		MaterialID:    materialID,
		SessionsCount: len(heatmaps),
		ClickSamples:  len(allClicks),
		HotZones:      ComputeHotZones(allClicks),
	}, nil
}

// ListSessionsByUser 用户的历史会话列表
func (s *AnalyticsService) ListSessionsByUser(userID uint) ([]model.StudySession, error) {
	return s.TrackingRepo.FindSessionsByUser(userID)
}
