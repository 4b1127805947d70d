package service

import (
	"context"
	"testing"

	"study_platform_backend/internal/model"
	"study_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaterialServiceForTest(repos *testRepos) *MaterialService {
	recommender := NewRecommendationService(repos.Material)
	return NewMaterialService(repos.Material, repos.Attempt, repos.Text, repos.Quiz, nil, nil, recommender)
}

func TestParseDecisionTree(t *testing.T) {
	valid := `{
		"title": "动作电位判断",
		"root": {
			"id": "n1",
			"question": "膜电位是否达到阈值？",
			"children": [
				{"id": "n2", "answer": "是", "conclusion": "触发动作电位"},
				{"id": "n3", "answer": "否", "question": "刺激是否持续？", "children": [
					{"id": "n4", "answer": "是", "conclusion": "可能时间性总和"},
					{"id": "n5", "answer": "否", "conclusion": "不产生动作电位"}
				]}
			]
		}
	}`

	tree, err := ParseDecisionTree(valid)
	require.NoError(t, err)
	assert.Equal(t, "动作电位判断", tree.Title)
	assert.Len(t, tree.Root.Children, 2)
}

func TestParseDecisionTreeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"非法 JSON", `{"title": "x", "root":`},
		{"分支缺问题", `{"title": "x", "root": {"id": "n1", "children": [{"id": "n2", "conclusion": "c"}]}}`},
		{"叶子缺结论", `{"title": "x", "root": {"id": "n1", "question": "q", "children": [{"id": "n2"}]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDecisionTree(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestPostProcessSanitizesHTML(t *testing.T) {
	db := newTestDB(t)
	svc := newMaterialServiceForTest(newTestRepos(db))

	raw := "```html\n" +
		`<div class="flashcard" data-card-index="0" onclick="alert(1)">突触<script>steal()</script></div>` +
		"\n```"

	content, kind, err := svc.postProcess(model.MaterialFlashcard, raw)
	require.NoError(t, err)

	assert.Equal(t, model.ContentHTML, kind)
	assert.Contains(t, content, `class="flashcard"`)
	assert.Contains(t, content, `data-card-index="0"`)
	assert.NotContains(t, content, "onclick")
	assert.NotContains(t, content, "<script")
}

func TestPostProcessRejectsEmptyContent(t *testing.T) {
	db := newTestDB(t)
	svc := newMaterialServiceForTest(newTestRepos(db))

	_, _, err := svc.postProcess(model.MaterialSummary, `<iframe src="https://evil.example"></iframe>`)
	assert.Error(t, err)
}

func TestPostProcessDecisionTreeNormalizesJSON(t *testing.T) {
	db := newTestDB(t)
	svc := newMaterialServiceForTest(newTestRepos(db))

	raw := "模型多说了一句。\n```json\n" +
		`{"title": "t", "root": {"id": "n1", "conclusion": "c"}}` +
		"\n```"

	content, kind, err := svc.postProcess(model.MaterialDecisionTree, raw)
	require.NoError(t, err)
	assert.Equal(t, model.ContentTreeJSON, kind)

	tree, err := ParseDecisionTree(content)
	require.NoError(t, err)
	assert.Equal(t, "t", tree.Title)
}

func TestRequestGenerationValidation(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newMaterialServiceForTest(repos)
	ctx := context.Background()

	user := seedUser(t, db, "student@test.dev")

	_, err := svc.RequestGeneration(ctx, user.ID, 1, "poster")
	assert.ErrorIs(t, err, util.ErrInvalidMaterialType)

	_, err = svc.RequestGeneration(ctx, user.ID, 999, model.MaterialFlashcard)
	assert.ErrorIs(t, err, util.ErrTextNotFound)

	text := seedText(t, db, "神经元基础")
	_, err = svc.RequestGeneration(ctx, user.ID, text.ID, model.MaterialFlashcard)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	// 有测验但没作答过，不给生成材料
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))
	_, err = svc.RequestGeneration(ctx, user.ID, text.ID, model.MaterialFlashcard)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestRequestGenerationRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newMaterialServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "神经元基础")
	quiz := seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))

	attempt := &model.QuizAttempt{UserID: user.ID, QuizID: quiz.ID, AttemptNumber: 1, Score: 40}
	require.NoError(t, db.Create(attempt).Error)

	pending := &model.MaterialRequest{
		UserID:       user.ID,
		TextID:       text.ID,
		AttemptID:    attempt.ID,
		MaterialType: model.MaterialFlashcard,
		Status:       model.RequestProcessing,
	}
	require.NoError(t, repos.Material.CreateRequest(pending))

	_, err := svc.RequestGeneration(context.Background(), user.ID, text.ID, model.MaterialFlashcard)
	assert.ErrorIs(t, err, util.ErrGenerationInProgress)
}

func TestGetMaterialOwnership(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newMaterialServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	other := seedUser(t, db, "other@test.dev")
	text := seedText(t, db, "神经元基础")
	quiz := seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))
	attempt := &model.QuizAttempt{UserID: user.ID, QuizID: quiz.ID, AttemptNumber: 1, Score: 40}
	require.NoError(t, db.Create(attempt).Error)

	material := seedMaterial(t, db, user.ID, text.ID, attempt.ID, model.MaterialFlashcard)

	got, err := svc.GetMaterial(user.ID, material.ID)
	require.NoError(t, err)
	assert.Equal(t, material.ID, got.ID)

	_, err = svc.GetMaterial(other.ID, material.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.GetMaterial(user.ID, 999)
	assert.ErrorIs(t, err, util.ErrMaterialNotFound)
}

func TestGetRequestStatusOwnership(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newMaterialServiceForTest(repos)

	req := &model.MaterialRequest{
		UserID:       1,
		TextID:       1,
		AttemptID:    1,
		MaterialType: model.MaterialSummary,
		Status:       model.RequestPending,
	}
	require.NoError(t, repos.Material.CreateRequest(req))

	got, err := svc.GetRequestStatus(1, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, got.Status)

	_, err = svc.GetRequestStatus(2, req.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.GetRequestStatus(1, 999)
	assert.ErrorIs(t, err, util.ErrRequestNotFound)
}
