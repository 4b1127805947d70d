package service

import (
	"testing"

	"study_platform_backend/internal/model"
	"study_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverviewAveragesClosedSessionsOnly(t *testing.T) {
	f := newTrackingFixture(t, model.MaterialSummary)
	svc := NewAnalyticsService(f.repos.Tracking, f.repos.Material)

	closed := &model.StudySession{
		SessionID:            "sess-closed",
		UserID:               f.user.ID,
		MaterialID:           f.material.ID,
		TotalTimeSeconds:     120,
		ActiveTimeSeconds:    100,
		TotalInteractions:    10,
		IsActive:             false,
		Completed:            true,
		CompletionPercentage: 90,
		EngagementScore:      60,
	}
	require.NoError(t, f.repos.Tracking.CreateSession(closed))

	// 进行中的会话计入总量但不拉低平均值
	open := &model.StudySession{
		SessionID:         "sess-open",
		UserID:            f.user.ID,
		MaterialID:        f.material.ID,
		TotalTimeSeconds:  30,
		ActiveTimeSeconds: 30,
		TotalInteractions: 2,
		IsActive:          true,
	}
	require.NoError(t, f.repos.Tracking.CreateSession(open))

	overview, err := svc.Overview(f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, overview.TotalSessions)
	assert.Equal(t, 150, overview.TotalStudySeconds)
	assert.Equal(t, 130, overview.ActiveStudySeconds)
	assert.Equal(t, 12, overview.TotalInteractions)
	assert.Equal(t, 1, overview.MaterialsStudied)
	assert.Equal(t, 1, overview.CompletedMaterials)
	assert.InDelta(t, 60.0, overview.AverageEngagement, 0.001)
	assert.InDelta(t, 90.0, overview.AverageCompletion, 0.001)
}

func TestMaterialHeatmapMergesSessions(t *testing.T) {
	f := newTrackingFixture(t, model.MaterialSummary)
	svc := NewAnalyticsService(f.repos.Tracking, f.repos.Material)

	// 两个会话各贡献一半点击，合并后同一网格成为热区
	for i, sessionID := range []string{"sess-1", "sess-2"} {
		_, err := f.svc.StartSession(f.user.ID, &model.SessionStartRequest{
			SessionID:  sessionID,
			MaterialID: f.material.ID,
		})
		require.NoError(t, err)

		_, err = f.svc.Sync(f.user.ID, &model.SessionSyncRequest{
			SessionID: sessionID,
			Heatmap: model.HeatmapBatch{
				Clicks: []model.HeatmapPoint{{X: 20 + i, Y: 20}, {X: 25, Y: 22 + i}},
			},
		})
		require.NoError(t, err)
	}

	heatmap, err := svc.MaterialHeatmap(f.user.ID, f.material.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, heatmap.SessionsCount)
	assert.Equal(t, 4, heatmap.ClickSamples)
	require.Len(t, heatmap.HotZones, 1)
	assert.Equal(t, 4, heatmap.HotZones[0].Intensity)

	// 别人的材料看不了
	other := seedUser(t, f.db, "other@test.dev")
	_, err = svc.MaterialHeatmap(other.ID, f.material.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
