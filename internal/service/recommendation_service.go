package service

import (
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
)

const (
	// 个人数据最少条数，不足时退回全局统计
	minEffectivenessRecords = 5
	// 平均提升低于 5 分不构成有效推荐
	minImprovementThreshold = 5.0
)

type RecommendationService struct {
	MaterialRepo *repository.MaterialRepository
}

func NewRecommendationService(materialRepo *repository.MaterialRepository) *RecommendationService {
	return &RecommendationService{MaterialRepo: materialRepo}
}

// Recommend 基于历史材料效果给出下一步学习材料类型
// 优先用户在该文本上的个人数据，数据不足依次退回全局统计和默认类型
func (s *RecommendationService) Recommend(userID, textID uint) (*model.MaterialRecommendation, error) {
	records, err := s.MaterialRepo.FindEffectiveness(userID, textID)
	if err != nil {
		return nil, err
	}

	if len(records) >= minEffectivenessRecords {
		byType := averageByType(records)
		best, bestAvg := bestType(byType)

		if bestAvg <= 0 {
			return s.globalFallback(byType, model.ReasonNoPositiveData)
		}
		if bestAvg < minImprovementThreshold {
			return &model.MaterialRecommendation{
				HasRecommendation: false,
				AllEffectiveness:  byType,
				Reason:            model.ReasonLowImprovement,
				Message:           "历史材料的提升幅度都不明显，建议重新阅读原文后再选择材料",
			}, nil
		}
		return &model.MaterialRecommendation{
			HasRecommendation:   true,
			RecommendedType:     best,
			ExpectedImprovement: bestAvg,
			AllEffectiveness:    byType,
			Reason:              model.ReasonSuccess,
			Message:             "根据你的学习历史推荐",
		}, nil
	}

	return s.globalFallback(averageByType(records), model.ReasonInsufficientData)
}

// globalFallback 个人数据不可用时用全体用户的统计
func (s *RecommendationService) globalFallback(personal map[model.MaterialType]float64, cause model.RecommendationReason) (*model.MaterialRecommendation, error) {
	global, err := s.MaterialRepo.GlobalEffectivenessByType()
	if err != nil {
		return nil, err
	}

	best, bestAvg := bestType(global)
	if bestAvg >= minImprovementThreshold {
		return &model.MaterialRecommendation{
			HasRecommendation:   true,
			RecommendedType:     best,
			ExpectedImprovement: bestAvg,
			AllEffectiveness:    personal,
			Reason:              model.ReasonGlobalStats,
			Message:             "数据不足，根据全体用户的统计推荐",
		}, nil
	}

	rec := &model.MaterialRecommendation{
		HasRecommendation: true,
		RecommendedType:   model.MaterialFlashcard,
		AllEffectiveness:  personal,
		Reason:            model.ReasonDefault,
		Message:           "暂无足够数据，推荐从学习卡片开始",
	}
	if cause == model.ReasonNoPositiveData {
		rec.Reason = model.ReasonNoPositiveData
		rec.Message = "历史材料均未带来提升，建议换用学习卡片"
	}
	return rec, nil
}

func averageByType(records []model.MaterialEffectiveness) map[model.MaterialType]float64 {
	sums := make(map[model.MaterialType]float64)
	counts := make(map[model.MaterialType]int)
	for _, r := range records {
		sums[r.MaterialType] += r.Improvement
		counts[r.MaterialType]++
	}
	avgs := make(map[model.MaterialType]float64, len(sums))
	for t, sum := range sums {
		avgs[t] = sum / float64(counts[t])
	}
	return avgs
}

// bestType 平均提升最高的类型，遍历顺序固定保证并列时结果稳定
func bestType(byType map[model.MaterialType]float64) (model.MaterialType, float64) {
	var best model.MaterialType
	bestAvg := 0.0
	found := false
	for _, t := range model.MaterialTypes {
		avg, ok := byType[t]
		if !ok {
			continue
		}
		if !found || avg > bestAvg {
			best = t
			bestAvg = avg
			found = true
		}
	}
	return best, bestAvg
}
