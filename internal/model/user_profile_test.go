package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchStudyDay(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.ParseInLocation("2006-01-02", s, time.Local)
		require.NoError(t, err)
		return d
	}

	p := &UserProfile{}

	// 首次学习
	p.TouchStudyDay(day("2026-09-01"))
	assert.Equal(t, 1, p.StudyStreak)

	// 同一天再学不变，时间点不同也算同一天
	p.TouchStudyDay(day("2026-09-01").Add(5 * time.Hour))
	assert.Equal(t, 1, p.StudyStreak)

	// 连续两天递增
	p.TouchStudyDay(day("2026-09-02"))
	assert.Equal(t, 2, p.StudyStreak)
	p.TouchStudyDay(day("2026-09-03"))
	assert.Equal(t, 3, p.StudyStreak)

	// 中断后重置
	p.TouchStudyDay(day("2026-09-07"))
	assert.Equal(t, 1, p.StudyStreak)

	require.NotNil(t, p.LastStudyDate)
	assert.Equal(t, day("2026-09-07"), *p.LastStudyDate)
}

func TestMergeWeakTopics(t *testing.T) {
	p := &UserProfile{}

	p.MergeWeakTopics([]string{"突触", "递质"})
	assert.Equal(t, []string{"突触", "递质"}, p.GetWeakTopics())

	// 并入时去重且保持原有顺序
	p.MergeWeakTopics([]string{"电位", "突触"})
	assert.Equal(t, []string{"突触", "递质", "电位"}, p.GetWeakTopics())

	p.MergeWeakTopics(nil)
	assert.Equal(t, []string{"突触", "递质", "电位"}, p.GetWeakTopics())
}
