package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
	"study_platform_backend/internal/util"
	"study_platform_backend/pkg/logger"
	"study_platform_backend/pkg/monitoring"
	"study_platform_backend/pkg/queue"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TaskGenerateQuiz = "quiz:generate"

	quizQuestionCount = 20
	quizMaxTokens     = 16384
	quizTemperature   = 0.7
)

type QuizService struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.AttemptRepository
	TextRepo    *repository.TextRepository
	ProfileRepo *repository.ProfileRepository
	AI          *AIService
	Queue       *queue.Queue
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	textRepo *repository.TextRepository,
	profileRepo *repository.ProfileRepository,
	ai *AIService,
	q *queue.Queue,
) *QuizService {
	return &QuizService{
		QuizRepo:    quizRepo,
		AttemptRepo: attemptRepo,
		TextRepo:    textRepo,
		ProfileRepo: profileRepo,
		AI:          ai,
		Queue:       q,
	}
}

type quizTaskPayload struct {
	TextID uint `json:"text_id"`
}

// RegisterTasks 向队列注册测验生成任务
func (s *QuizService) RegisterTasks() {
	s.Queue.Register(TaskGenerateQuiz, s.handleGenerateQuiz)
}

// RequestGeneration 教师触发测验生成，入队后立即返回
func (s *QuizService) RequestGeneration(ctx context.Context, textID uint) error {
	text, err := s.TextRepo.FindByID(textID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTextNotFound
		}
		return err
	}

	if _, err := s.QuizRepo.FindByTextID(text.ID); err == nil {
		return util.ErrQuizAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	_, err = s.Queue.Enqueue(ctx, TaskGenerateQuiz, quizTaskPayload{TextID: text.ID})
	return err
}

func (s *QuizService) handleGenerateQuiz(ctx context.Context, payload json.RawMessage) error {
	var p quizTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}

	text, err := s.TextRepo.FindByID(p.TextID)
	if err != nil {
		return err
	}

	// 重试期间可能已由其他任务生成
	if _, err := s.QuizRepo.FindByTextID(text.ID); err == nil {
		return nil
	}

	start := time.Now()
	prompt := BuildQuizPrompt(text, quizQuestionCount)

	raw, err := s.AI.Generate(ctx, quizSystemPrompt, prompt, quizTemperature, quizMaxTokens)
	if err != nil {
		monitoring.GenerationCounter.WithLabelValues("quiz", "error").Inc()
		return fmt.Errorf("quiz generation: %w", err)
	}

	jsonArray, err := ExtractJSONArray(raw)
	if err != nil {
		monitoring.GenerationCounter.WithLabelValues("quiz", "parse_error").Inc()
		return fmt.Errorf("quiz generation: %w", err)
	}

	var questions []model.QuizQuestion
	if err := json.Unmarshal([]byte(jsonArray), &questions); err != nil {
		monitoring.GenerationCounter.WithLabelValues("quiz", "parse_error").Inc()
		return fmt.Errorf("quiz generation: %w", err)
	}

	if err := model.ValidateQuestions(questions, quizQuestionCount); err != nil {
		monitoring.GenerationCounter.WithLabelValues("quiz", "invalid").Inc()
		return fmt.Errorf("quiz generation: %w", err)
	}

	// 答案统一大写
	for i := range questions {
		questions[i].CorrectAnswer = strings.ToUpper(strings.TrimSpace(questions[i].CorrectAnswer))
	}

	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	quiz := &model.Quiz{
		TextID:                text.ID,
		Questions:             data,
		TotalQuestions:        len(questions),
		GenerationPrompt:      util.TruncateRunes(prompt, 1000),
		GenerationTimeSeconds: int(elapsed.Seconds()),
		ModelUsed:             s.AI.config.Model,
	}
	if err := s.QuizRepo.Create(quiz); err != nil {
		return err
	}

	if err := s.TextRepo.SetHasQuiz(text.ID, true); err != nil {
		return err
	}

	monitoring.GenerationCounter.WithLabelValues("quiz", "success").Inc()
	monitoring.GenerationDuration.WithLabelValues("quiz").Observe(elapsed.Seconds())
	logger.Log.Info("Quiz generated",
		zap.Uint("text_id", text.ID),
		zap.Int("questions", len(questions)),
		zap.Duration("elapsed", elapsed))
	return nil
}

// StudentQuizView 学生视角的测验，不含答案和解析
type StudentQuizView struct {
	QuizID         uint                  `json:"quizId"`
	TextID         uint                  `json:"textId"`
	TotalQuestions int                   `json:"totalQuestions"`
	Questions      []StudentQuizQuestion `json:"questions"`
}

type StudentQuizQuestion struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// GetQuizForStudent 获取测验题目，已作答过则拒绝
func (s *QuizService) GetQuizForStudent(userID, textID uint) (*StudentQuizView, error) {
	quiz, err := s.QuizRepo.FindByTextID(textID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	count, err := s.AttemptRepo.CountByUserAndQuiz(userID, quiz.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, util.ErrQuizAlreadyTaken
	}

	questions, err := quiz.GetQuestions()
	if err != nil {
		return nil, err
	}

	view := &StudentQuizView{
		QuizID:         quiz.ID,
		TextID:         quiz.TextID,
		TotalQuestions: quiz.TotalQuestions,
	}
	for i, q := range questions {
		view.Questions = append(view.Questions, StudentQuizQuestion{
			Index:    i,
			Question: q.Question,
			Options:  q.Options,
		})
	}
	return view, nil
}

// Submit 评分并在同一事务内落库：作答记录、档案更新、材料效果
func (s *QuizService) Submit(userID, textID uint, submission *model.QuizSubmission) (*model.QuizResult, error) {
	quiz, err := s.QuizRepo.FindByTextID(textID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	questions, err := quiz.GetQuestions()
	if err != nil {
		return nil, err
	}

	if len(submission.Answers) != len(questions) {
		return nil, util.ErrAnswerCountMismatch
	}

	details, topicErrors, correctCount := gradeAnswers(questions, submission.Answers)
	score := float64(correctCount) / float64(len(questions)) * 100
	weakTopics := rankWeakTopics(questions, topicErrors)

	answersJSON, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	weakJSON, err := json.Marshal(weakTopics)
	if err != nil {
		return nil, err
	}

	prevCount, err := s.AttemptRepo.CountByUserAndQuiz(userID, quiz.ID)
	if err != nil {
		return nil, err
	}

	attempt := &model.QuizAttempt{
		UserID:           userID,
		QuizID:           quiz.ID,
		AttemptNumber:    int(prevCount) + 1,
		Score:            score,
		Answers:          answersJSON,
		WeakTopics:       weakJSON,
		TimeSpentSeconds: submission.TimeSpentSeconds,
	}

	var prevAttempt *model.QuizAttempt
	if prevCount > 0 {
		prevAttempt, err = s.AttemptRepo.LatestByUserAndQuiz(userID, quiz.ID)
		if err != nil {
			return nil, err
		}
	}

	err = s.QuizRepo.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		var profile model.UserProfile
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			profile = model.UserProfile{UserID: userID}
		}
		profile.MergeWeakTopics(weakTopics)
		profile.TouchStudyDay(time.Now())
		profile.TotalStudyTimeMinutes += submission.TimeSpentSeconds / 60
		if profile.ID == 0 {
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
		} else if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		// 重考且期间学习过材料时记录前后分差
		if prevAttempt != nil {
			if err := s.recordEffectiveness(tx, userID, textID, prevAttempt, score); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &model.QuizResult{
		Attempt:         attempt,
		Score:           score,
		CorrectCount:    correctCount,
		TotalQuestions:  len(questions),
		Passed:          attempt.Passed(),
		WeakTopics:      weakTopics,
		TopicErrors:     topicErrors,
		DetailedAnswers: details,
	}
	if result.Passed {
		result.Message = "恭喜通过测验"
	} else {
		result.Message = "未达到通过线，已为你准备个性化学习材料"
	}
	return result, nil
}

// gradeAnswers 逐题判分，解析只在答错时附带
func gradeAnswers(questions []model.QuizQuestion, answers []model.SubmittedAnswer) ([]model.AnswerDetail, map[string]int, int) {
	byIndex := make(map[int]string, len(answers))
	for _, a := range answers {
		byIndex[a.QuestionIndex] = strings.ToUpper(strings.TrimSpace(a.SelectedAnswer))
	}

	details := make([]model.AnswerDetail, 0, len(questions))
	topicErrors := make(map[string]int)
	correctCount := 0

	for i, q := range questions {
		selected := byIndex[i]
		correct := strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
		isCorrect := selected == correct

		detail := model.AnswerDetail{
			QuestionIndex:  i,
			Question:       q.Question,
			SelectedAnswer: selected,
			CorrectAnswer:  correct,
			IsCorrect:      isCorrect,
			Topic:          q.Topic,
		}
		if isCorrect {
			correctCount++
		} else {
			detail.Explanation = q.Explanation
			topicErrors[q.Topic]++
		}
		details = append(details, detail)
	}

	return details, topicErrors, correctCount
}

// rankWeakTopics 弱项按错误次数降序，次数相同按题目中首次出现顺序
func rankWeakTopics(questions []model.QuizQuestion, topicErrors map[string]int) []string {
	firstSeen := make(map[string]int)
	order := 0
	for _, q := range questions {
		if _, ok := firstSeen[q.Topic]; !ok {
			firstSeen[q.Topic] = order
			order++
		}
	}

	topics := make([]string, 0, len(topicErrors))
	for t := range topicErrors {
		topics = append(topics, t)
	}
	sort.SliceStable(topics, func(i, j int) bool {
		if topicErrors[topics[i]] != topicErrors[topics[j]] {
			return topicErrors[topics[i]] > topicErrors[topics[j]]
		}
		return firstSeen[topics[i]] < firstSeen[topics[j]]
	})
	return topics
}

// recordEffectiveness 上次作答之后学习过的每种材料类型各记一条效果
func (s *QuizService) recordEffectiveness(tx *gorm.DB, userID, textID uint, prev *model.QuizAttempt, newScore float64) error {
	var materials []model.Material
	err := tx.Where("user_id = ? AND text_id = ? AND last_studied_at > ?", userID, textID, prev.CreatedAt).
		Find(&materials).Error
	if err != nil {
		return err
	}

	seen := make(map[model.MaterialType]bool)
	for _, m := range materials {
		if seen[m.MaterialType] {
			continue
		}
		seen[m.MaterialType] = true
		eff := &model.MaterialEffectiveness{
			UserID:       userID,
			TextID:       textID,
			MaterialType: m.MaterialType,
			ScoreBefore:  prev.Score,
			ScoreAfter:   newScore,
			Improvement:  newScore - prev.Score,
		}
		if err := tx.Create(eff).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetAttemptsByUser 用户全部作答记录
func (s *QuizService) GetAttemptsByUser(userID uint) ([]model.QuizAttempt, error) {
	return s.AttemptRepo.FindByUser(userID)
}

// GetAttemptDetail 单次作答详情，只能看自己的
func (s *QuizService) GetAttemptDetail(userID, attemptID uint) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return attempt, nil
}
