package service

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
	"study_platform_backend/pkg/database"
	"study_platform_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// newTestDB 每个测试用独立的内存库，避免用例之间串数据
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testRepos struct {
	User     *repository.UserRepository
	Profile  *repository.ProfileRepository
	Text     *repository.TextRepository
	Quiz     *repository.QuizRepository
	Attempt  *repository.AttemptRepository
	Material *repository.MaterialRepository
	Tracking *repository.TrackingRepository
}

func newTestRepos(db *gorm.DB) *testRepos {
	return &testRepos{
		User:     repository.NewUserRepository(db),
		Profile:  repository.NewProfileRepository(db),
		Text:     repository.NewTextRepository(db),
		Quiz:     repository.NewQuizRepository(db),
		Attempt:  repository.NewAttemptRepository(db),
		Material: repository.NewMaterialRepository(db),
		Tracking: repository.NewTrackingRepository(db),
	}
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     "测试用户",
		Email:    email,
		Password: "hashed",
		Role:     model.Student,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedText(t *testing.T, db *gorm.DB, title string) *model.Text {
	t.Helper()
	text := &model.Text{
		Title:      title,
		Content:    "神经元通过突触传递信号。动作电位沿轴突传导。",
		Topic:      "神经科学",
		Difficulty: model.DifficultyIntermediate,
		Status:     model.TextActive,
	}
	if err := db.Create(text).Error; err != nil {
		t.Fatalf("seed text: %v", err)
	}
	return text
}

// makeQuestions 生成 n 道题，topic 按给定列表轮转，正确答案都是 A
func makeQuestions(n int, topics ...string) []model.QuizQuestion {
	if len(topics) == 0 {
		topics = []string{"默认主题"}
	}
	questions := make([]model.QuizQuestion, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, model.QuizQuestion{
			Question:      fmt.Sprintf("第 %d 题", i+1),
			Options:       []string{"甲", "乙", "丙", "丁"},
			CorrectAnswer: "A",
			Topic:         topics[i%len(topics)],
			Explanation:   "依据原文",
		})
	}
	return questions
}

func seedQuiz(t *testing.T, db *gorm.DB, textID uint, questions []model.QuizQuestion) *model.Quiz {
	t.Helper()
	data, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	quiz := &model.Quiz{
		TextID:         textID,
		Questions:      data,
		TotalQuestions: len(questions),
		ModelUsed:      "test-model",
	}
	if err := db.Create(quiz).Error; err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

func seedMaterial(t *testing.T, db *gorm.DB, userID, textID, attemptID uint, materialType model.MaterialType) *model.Material {
	t.Helper()
	material := &model.Material{
		UserID:       userID,
		TextID:       textID,
		AttemptID:    attemptID,
		MaterialType: materialType,
		ContentKind:  model.ContentHTML,
		Content:      "<div class=\"flashcard\" data-card-index=\"0\">突触</div>",
	}
	if err := db.Create(material).Error; err != nil {
		t.Fatalf("seed material: %v", err)
	}
	return material
}

// allCorrect / allWrong 构造整卷答案
func allCorrect(n int) []model.SubmittedAnswer {
	answers := make([]model.SubmittedAnswer, 0, n)
	for i := 0; i < n; i++ {
		answers = append(answers, model.SubmittedAnswer{QuestionIndex: i, SelectedAnswer: "a"})
	}
	return answers
}

func allWrong(n int) []model.SubmittedAnswer {
	answers := make([]model.SubmittedAnswer, 0, n)
	for i := 0; i < n; i++ {
		answers = append(answers, model.SubmittedAnswer{QuestionIndex: i, SelectedAnswer: "B"})
	}
	return answers
}
