package service

import (
	"testing"

	"study_platform_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEffectiveness(t *testing.T, db *gorm.DB, userID, textID uint, materialType model.MaterialType, improvements ...float64) {
	t.Helper()
	for _, imp := range improvements {
		eff := &model.MaterialEffectiveness{
			UserID:       userID,
			TextID:       textID,
			MaterialType: materialType,
			ScoreBefore:  50,
			ScoreAfter:   50 + imp,
			Improvement:  imp,
		}
		require.NoError(t, db.Create(eff).Error)
	}
}

func TestRecommendFromPersonalHistory(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := NewRecommendationService(repos.Material)

	seedEffectiveness(t, db, 1, 1, model.MaterialFlashcard, 10, 20)
	seedEffectiveness(t, db, 1, 1, model.MaterialSummary, 2, 2, 2)

	rec, err := svc.Recommend(1, 1)
	require.NoError(t, err)

	assert.True(t, rec.HasRecommendation)
	assert.Equal(t, model.ReasonSuccess, rec.Reason)
	assert.Equal(t, model.MaterialFlashcard, rec.RecommendedType)
	assert.InDelta(t, 15.0, rec.ExpectedImprovement, 0.001)
	assert.InDelta(t, 15.0, rec.AllEffectiveness[model.MaterialFlashcard], 0.001)
	assert.InDelta(t, 2.0, rec.AllEffectiveness[model.MaterialSummary], 0.001)
}

func TestRecommendLowImprovement(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := NewRecommendationService(repos.Material)

	// 5 条记录但最高平均提升不到 5 分
	seedEffectiveness(t, db, 1, 1, model.MaterialFlashcard, 3, 4)
	seedEffectiveness(t, db, 1, 1, model.MaterialMindMap, 1, 2, 2)

	rec, err := svc.Recommend(1, 1)
	require.NoError(t, err)

	assert.False(t, rec.HasRecommendation)
	assert.Equal(t, model.ReasonLowImprovement, rec.Reason)
}

func TestRecommendNoPositiveData(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := NewRecommendationService(repos.Material)

	// 个人数据全是负提升，全局统计也只有这些，退回默认类型
	seedEffectiveness(t, db, 1, 1, model.MaterialDecisionTree, -5, -3, -8)
	seedEffectiveness(t, db, 1, 1, model.MaterialSummary, -2, -1)

	rec, err := svc.Recommend(1, 1)
	require.NoError(t, err)

	assert.True(t, rec.HasRecommendation)
	assert.Equal(t, model.ReasonNoPositiveData, rec.Reason)
	assert.Equal(t, model.MaterialFlashcard, rec.RecommendedType)
}

func TestRecommendGlobalFallback(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := NewRecommendationService(repos.Material)

	// 本人只有 2 条记录，其他用户的思维导图数据足够好
	seedEffectiveness(t, db, 1, 1, model.MaterialFlashcard, 3, 4)
	seedEffectiveness(t, db, 2, 1, model.MaterialMindMap, 10, 14)
	seedEffectiveness(t, db, 3, 2, model.MaterialMindMap, 12)

	rec, err := svc.Recommend(1, 1)
	require.NoError(t, err)

	assert.True(t, rec.HasRecommendation)
	assert.Equal(t, model.ReasonGlobalStats, rec.Reason)
	assert.Equal(t, model.MaterialMindMap, rec.RecommendedType)
	assert.InDelta(t, 12.0, rec.ExpectedImprovement, 0.001)
}

func TestRecommendColdStartDefault(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := NewRecommendationService(repos.Material)

	rec, err := svc.Recommend(1, 1)
	require.NoError(t, err)

	assert.True(t, rec.HasRecommendation)
	assert.Equal(t, model.ReasonDefault, rec.Reason)
	assert.Equal(t, model.MaterialFlashcard, rec.RecommendedType)
}

func TestBestTypeTieIsStable(t *testing.T) {
	byType := map[model.MaterialType]float64{
		model.MaterialMindMap:      7,
		model.MaterialDecisionTree: 7,
	}

	// 平均提升并列时按固定的类型顺序取先出现的
	best, avg := bestType(byType)
	assert.Equal(t, model.MaterialDecisionTree, best)
	assert.InDelta(t, 7.0, avg, 0.001)
}

func TestAverageByType(t *testing.T) {
	records := []model.MaterialEffectiveness{
		{MaterialType: model.MaterialFlashcard, Improvement: 10},
		{MaterialType: model.MaterialFlashcard, Improvement: 20},
		{MaterialType: model.MaterialSummary, Improvement: -4},
	}

	avgs := averageByType(records)
	assert.InDelta(t, 15.0, avgs[model.MaterialFlashcard], 0.001)
	assert.InDelta(t, -4.0, avgs[model.MaterialSummary], 0.001)
}
