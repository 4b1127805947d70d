package service

import (
	"context"
	"strings"
	"testing"

	"study_platform_backend/internal/model"
	"study_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextServiceForTest(repos *testRepos) *TextService {
	return NewTextService(repos.Text, repos.Quiz, repos.Attempt, nil)
}

func TestCreateTextDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := newTextServiceForTest(newTestRepos(db))

	text, err := svc.Create(context.Background(), 1, &CreateTextInput{
		Title:   "神经元基础",
		Content: "神经元通过突触传递信号。",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "General", text.Topic)
	assert.Equal(t, model.DifficultyIntermediate, text.Difficulty)
	assert.Equal(t, model.TextDraft, text.Status)
	assert.Equal(t, 5, text.EstimatedTimeMinutes)
	assert.False(t, text.HasQuiz)
}

func TestCreateTextEstimatesReadingTime(t *testing.T) {
	db := newTestDB(t)
	svc := newTextServiceForTest(newTestRepos(db))

	// 2000 个空格分隔的词，按 200 词/分钟约 10 分钟
	content := strings.Repeat("neuron synapse ", 1000)
	text, err := svc.Create(context.Background(), 1, &CreateTextInput{
		Title:   "长文本",
		Content: content,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, text.EstimatedTimeMinutes)
}

func TestCreateTextRejectsEmptyContent(t *testing.T) {
	db := newTestDB(t)
	svc := newTextServiceForTest(newTestRepos(db))

	_, err := svc.Create(context.Background(), 1, &CreateTextInput{
		Title:   "空文本",
		Content: "   \n  ",
	}, nil)
	assert.Error(t, err)
}

func TestGetForStudentOnlyActive(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newTextServiceForTest(repos)

	draft := &model.Text{Title: "草稿", Content: "内容", Status: model.TextDraft}
	require.NoError(t, repos.Text.Create(draft))

	_, err := svc.GetForStudent(draft.ID)
	assert.ErrorIs(t, err, util.ErrTextNotActive)

	_, err = svc.GetForStudent(999)
	assert.ErrorIs(t, err, util.ErrTextNotFound)

	active := seedText(t, db, "已发布")
	got, err := svc.GetForStudent(active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)
}

func TestListForStudentCarriesQuizState(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newTextServiceForTest(repos)

	text := seedText(t, db, "神经元基础")
	quiz := seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))
	require.NoError(t, repos.Text.SetHasQuiz(text.ID, true))

	user := seedUser(t, db, "student@test.dev")
	attempt := &model.QuizAttempt{UserID: user.ID, QuizID: quiz.ID, AttemptNumber: 1, Score: 65}
	require.NoError(t, db.Create(attempt).Error)

	items, total, err := svc.ListForStudent(user.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)

	assert.True(t, items[0].HasQuiz)
	assert.True(t, items[0].QuizCompleted)
	require.NotNil(t, items[0].LastScore)
	assert.InDelta(t, 65.0, *items[0].LastScore, 0.001)

	// 没作答过的学生只看到有测验，没有成绩
	other := seedUser(t, db, "other@test.dev")
	items, _, err = svc.ListForStudent(other.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].QuizCompleted)
	assert.Nil(t, items[0].LastScore)
}

func TestListForStudentHidesDrafts(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newTextServiceForTest(repos)

	seedText(t, db, "已发布")
	draft := &model.Text{Title: "草稿", Content: "内容", Status: model.TextDraft}
	require.NoError(t, repos.Text.Create(draft))

	items, total, err := svc.ListForStudent(1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "已发布", items[0].Title)

	// 教师列表两个都在
	items, total, err = svc.ListForTeacher(1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)
}

func TestUpdateTextPartialFields(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newTextServiceForTest(repos)

	text := seedText(t, db, "原标题")

	newTitle := "新标题"
	newStatus := model.TextArchived
	updated, err := svc.Update(text.ID, &UpdateTextInput{
		Title:  &newTitle,
		Status: &newStatus,
	})
	require.NoError(t, err)

	assert.Equal(t, "新标题", updated.Title)
	assert.Equal(t, model.TextArchived, updated.Status)
	// 未提供的字段保持原值
	assert.Equal(t, text.Content, updated.Content)
	assert.Equal(t, text.Topic, updated.Topic)
}

func TestDeleteQuizResetsTextFlag(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newTextServiceForTest(repos)

	text := seedText(t, db, "神经元基础")
	quiz := seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))
	require.NoError(t, repos.Text.SetHasQuiz(text.ID, true))

	user := seedUser(t, db, "student@test.dev")
	attempt := &model.QuizAttempt{UserID: user.ID, QuizID: quiz.ID, AttemptNumber: 1, Score: 65}
	require.NoError(t, db.Create(attempt).Error)

	require.NoError(t, svc.DeleteQuiz(text.ID))

	refreshed, err := repos.Text.FindByID(text.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.HasQuiz)

	var attempts int64
	db.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quiz.ID).Count(&attempts)
	assert.Zero(t, attempts)

	// 再删一次已无测验
	assert.ErrorIs(t, svc.DeleteQuiz(text.ID), util.ErrQuizNotFound)
}
