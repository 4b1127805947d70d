package service

import (
	"testing"
	"time"

	"study_platform_backend/internal/model"
	"study_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuizServiceForTest(repos *testRepos) *QuizService {
	return NewQuizService(repos.Quiz, repos.Attempt, repos.Text, repos.Profile, nil, nil)
}

func TestGradeAnswers(t *testing.T) {
	questions := makeQuestions(4, "细胞", "突触")
	answers := []model.SubmittedAnswer{
		{QuestionIndex: 0, SelectedAnswer: "a"}, // 小写也算对
		{QuestionIndex: 1, SelectedAnswer: "B"},
		{QuestionIndex: 2, SelectedAnswer: " A "},
		{QuestionIndex: 3, SelectedAnswer: "C"},
	}

	details, topicErrors, correctCount := gradeAnswers(questions, answers)

	assert.Equal(t, 2, correctCount)
	require.Len(t, details, 4)
	assert.True(t, details[0].IsCorrect)
	assert.False(t, details[1].IsCorrect)
	assert.True(t, details[2].IsCorrect)
	assert.False(t, details[3].IsCorrect)

	// 解析只在答错时返回
	assert.Empty(t, details[0].Explanation)
	assert.NotEmpty(t, details[1].Explanation)

	// 0、2 题是"细胞"，1、3 题是"突触"，错的都在"突触"
	assert.Equal(t, map[string]int{"突触": 2}, topicErrors)
}

func TestRankWeakTopics(t *testing.T) {
	questions := []model.QuizQuestion{
		{Topic: "递质"},
		{Topic: "细胞"},
		{Topic: "突触"},
		{Topic: "细胞"},
	}

	ranked := rankWeakTopics(questions, map[string]int{"细胞": 2, "突触": 1, "递质": 1})

	// 错误次数降序，并列时按题目中首次出现顺序："递质"先于"突触"
	assert.Equal(t, []string{"细胞", "递质", "突触"}, ranked)
}

func TestSubmitScoresAndPersists(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "神经元基础")
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞", "突触", "递质", "电位"))

	// 答错"突触"的全部 5 题和"递质"的 2 题，其余答对
	answers := allCorrect(20)
	for _, i := range []int{1, 5, 9, 13, 17, 2, 6} {
		answers[i].SelectedAnswer = "B"
	}

	result, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{
		Answers:          answers,
		TimeSpentSeconds: 600,
	})
	require.NoError(t, err)

	assert.InDelta(t, 65.0, result.Score, 0.001)
	assert.Equal(t, 13, result.CorrectCount)
	assert.Equal(t, 20, result.TotalQuestions)
	assert.False(t, result.Passed)
	assert.Equal(t, []string{"突触", "递质"}, result.WeakTopics)

	attempt, err := repos.Attempt.LatestByUserAndQuiz(user.ID, result.Attempt.QuizID)
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.AttemptNumber)
	assert.Equal(t, 600, attempt.TimeSpentSeconds)
	assert.Equal(t, []string{"突触", "递质"}, attempt.GetWeakTopics())

	profile, err := repos.Profile.FindOrCreate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.StudyStreak)
	assert.Equal(t, 10, profile.TotalStudyTimeMinutes)
	assert.Equal(t, []string{"突触", "递质"}, profile.GetWeakTopics())
}

func TestSubmitPerfectScorePasses(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "神经元基础")
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))

	result, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allCorrect(20)})
	require.NoError(t, err)

	assert.InDelta(t, 100.0, result.Score, 0.001)
	assert.True(t, result.Passed)
	assert.Empty(t, result.WeakTopics)
}

func TestSubmitAnswerCountMismatch(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "神经元基础")
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))

	_, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allCorrect(19)})
	assert.ErrorIs(t, err, util.ErrAnswerCountMismatch)

	// 校验失败不落任何记录
	var count int64
	db.Model(&model.QuizAttempt{}).Count(&count)
	assert.Zero(t, count)
}

func TestGetQuizForStudentHidesAnswersAndBlocksRetake(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "神经元基础")
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))

	view, err := svc.GetQuizForStudent(user.ID, text.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 20)
	assert.Equal(t, 0, view.Questions[0].Index)
	assert.Len(t, view.Questions[0].Options, 4)

	_, err = svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allCorrect(20)})
	require.NoError(t, err)

	// 已作答过不再允许获取题目
	_, err = svc.GetQuizForStudent(user.ID, text.ID)
	assert.ErrorIs(t, err, util.ErrQuizAlreadyTaken)

	// 其他学生不受影响
	other := seedUser(t, db, "other@test.dev")
	_, err = svc.GetQuizForStudent(other.ID, text.ID)
	assert.NoError(t, err)
}

func TestSubmitQuizNotFound(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "无测验的文本")

	_, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allCorrect(20)})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestSubmitRecordsEffectivenessOnRetake(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "神经元基础")
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))

	first, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allWrong(20)})
	require.NoError(t, err)
	require.InDelta(t, 0.0, first.Score, 0.001)

	// 两份同类型材料在第一次作答后被学习过，只记一条效果
	studied := time.Now().Add(time.Minute)
	for i := 0; i < 2; i++ {
		material := seedMaterial(t, db, user.ID, text.ID, first.Attempt.ID, model.MaterialFlashcard)
		material.LastStudiedAt = &studied
		require.NoError(t, repos.Material.Update(material))
	}
	summary := seedMaterial(t, db, user.ID, text.ID, first.Attempt.ID, model.MaterialSummary)
	summary.LastStudiedAt = &studied
	require.NoError(t, repos.Material.Update(summary))

	second, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allCorrect(20)})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt.AttemptNumber)

	records, err := repos.Material.FindEffectiveness(user.ID, text.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byType := make(map[model.MaterialType]model.MaterialEffectiveness)
	for _, r := range records {
		byType[r.MaterialType] = r
	}
	flashcard, ok := byType[model.MaterialFlashcard]
	require.True(t, ok)
	assert.InDelta(t, 0.0, flashcard.ScoreBefore, 0.001)
	assert.InDelta(t, 100.0, flashcard.ScoreAfter, 0.001)
	assert.InDelta(t, 100.0, flashcard.Improvement, 0.001)
	assert.Contains(t, byType, model.MaterialSummary)
}

func TestSubmitRetakeWithoutStudyRecordsNothing(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	text := seedText(t, db, "神经元基础")
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))

	_, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allWrong(20)})
	require.NoError(t, err)
	_, err = svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allCorrect(20)})
	require.NoError(t, err)

	records, err := repos.Material.FindEffectiveness(user.ID, text.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetAttemptDetailOwnership(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newQuizServiceForTest(repos)

	user := seedUser(t, db, "student@test.dev")
	other := seedUser(t, db, "other@test.dev")
	text := seedText(t, db, "神经元基础")
	seedQuiz(t, db, text.ID, makeQuestions(20, "细胞"))

	result, err := svc.Submit(user.ID, text.ID, &model.QuizSubmission{Answers: allCorrect(20)})
	require.NoError(t, err)

	got, err := svc.GetAttemptDetail(user.ID, result.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Attempt.ID, got.ID)

	_, err = svc.GetAttemptDetail(other.ID, result.Attempt.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
