package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
	"study_platform_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type TextService struct {
	TextRepo    *repository.TextRepository
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.AttemptRepository
	Storage     *StorageService
}

func NewTextService(
	textRepo *repository.TextRepository,
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	storage *StorageService,
) *TextService {
	return &TextService{
		TextRepo:    textRepo,
		QuizRepo:    quizRepo,
		AttemptRepo: attemptRepo,
		Storage:     storage,
	}
}

// TextListItem 列表项，不携带正文
type TextListItem struct {
	ID                   uint                 `json:"id"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	Topic                string               `json:"topic"`
	Difficulty           model.TextDifficulty `json:"difficulty"`
	Status               model.TextStatus     `json:"status,omitempty"`
	EstimatedTimeMinutes int                  `json:"estimatedTimeMinutes"`
	Order                int                  `json:"order"`
	HasQuiz              bool                 `json:"hasQuiz"`
	WordCount            int                  `json:"wordCount"`
	QuizCompleted        bool                 `json:"quizCompleted"`
	LastScore            *float64             `json:"lastScore,omitempty"`
}

// ListForStudent 学生可见的文本列表，附带本人作答状态
func (s *TextService) ListForStudent(userID uint, page, limit int) ([]TextListItem, int64, error) {
	texts, total, err := s.TextRepo.FindActive(page, limit)
	if err != nil {
		return nil, 0, err
	}

	items := make([]TextListItem, 0, len(texts))
	for i := range texts {
		t := &texts[i]
		item := TextListItem{
			ID:                   t.ID,
			Title:                t.Title,
			Description:          t.Description,
			Topic:                t.Topic,
			Difficulty:           t.Difficulty,
			EstimatedTimeMinutes: t.EstimatedTimeMinutes,
			Order:                t.Order,
			HasQuiz:              t.HasQuiz,
			WordCount:            t.WordCount(),
		}

		if t.HasQuiz {
			if quiz, err := s.QuizRepo.FindByTextID(t.ID); err == nil {
				if attempt, err := s.AttemptRepo.LatestByUserAndQuiz(userID, quiz.ID); err == nil {
					item.QuizCompleted = true
					score := attempt.Score
					item.LastScore = &score
				}
			}
		}
		items = append(items, item)
	}
	return items, total, nil
}

// GetForStudent 学生只能读已发布文本
func (s *TextService) GetForStudent(textID uint) (*model.Text, error) {
	text, err := s.TextRepo.FindByID(textID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTextNotFound
		}
		return nil, err
	}
	if text.Status != model.TextActive {
		return nil, util.ErrTextNotActive
	}
	return text, nil
}

// ListForTeacher 教师可见全部状态的文本
func (s *TextService) ListForTeacher(page, limit int) ([]TextListItem, int64, error) {
	texts, total, err := s.TextRepo.FindAll(page, limit)
	if err != nil {
		return nil, 0, err
	}

	items := make([]TextListItem, 0, len(texts))
	for i := range texts {
		t := &texts[i]
		items = append(items, TextListItem{
			ID:                   t.ID,
			Title:                t.Title,
			Description:          t.Description,
			Topic:                t.Topic,
			Difficulty:           t.Difficulty,
			Status:               t.Status,
			EstimatedTimeMinutes: t.EstimatedTimeMinutes,
			Order:                t.Order,
			HasQuiz:              t.HasQuiz,
			WordCount:            t.WordCount(),
		})
	}
	return items, total, nil
}

func (s *TextService) GetForTeacher(textID uint) (*model.Text, error) {
	text, err := s.TextRepo.FindByID(textID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTextNotFound
		}
		return nil, err
	}
	return text, nil
}

// CreateTextInput 创建文本的表单内容
type CreateTextInput struct {
	Title       string               `json:"title" binding:"required"`
	Description string               `json:"description"`
	Content     string               `json:"content"`
	Topic       string               `json:"topic"`
	Difficulty  model.TextDifficulty `json:"difficulty"`
	Order       int                  `json:"order"`
}

// Create 创建文本，正文可直接提交或从上传文件提取
func (s *TextService) Create(ctx context.Context, createdBy uint, input *CreateTextInput, file *multipart.FileHeader) (*model.Text, error) {
	text := &model.Text{
		Title:       input.Title,
		Description: input.Description,
		Content:     util.CleanExtractedText(input.Content),
		Topic:       input.Topic,
		Difficulty:  input.Difficulty,
		Status:      model.TextDraft,
		Order:       input.Order,
		CreatedByID: createdBy,
	}
	if text.Topic == "" {
		text.Topic = "General"
	}
	if text.Difficulty == "" {
		text.Difficulty = model.DifficultyIntermediate
	}

	if file != nil {
		if err := s.attachFile(ctx, text, file); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(text.Content) == "" {
		return nil, errors.New("text content is empty")
	}

	text.EstimatedTimeMinutes = text.EstimateReadingTime()

	if err := s.TextRepo.Create(text); err != nil {
		return nil, err
	}
	return text, nil
}

// attachFile 存储上传文件并提取纯文本正文
func (s *TextService) attachFile(ctx context.Context, text *model.Text, file *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := false
	for _, e := range util.AllowedTextExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("unsupported file extension: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	storedName := fmt.Sprintf("texts/%d_%s%s", time.Now().UnixNano(), model.GenerateUUID()[:8], ext)
	if _, err := s.Storage.Upload(ctx, storedName, src, file.Size, file.Header.Get("Content-Type")); err != nil {
		return err
	}
	text.FilePath = storedName
	text.FileType = strings.TrimPrefix(ext, ".")

	// PDF 正文由教师在表单中粘贴，纯文本文件直接提取
	if text.Content == "" && ext != ".pdf" {
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return err
		}
		raw, err := io.ReadAll(src)
		if err != nil {
			return err
		}
		text.Content = util.CleanExtractedText(string(raw))
	}
	return nil
}

// UpdateTextInput 可更新的字段，nil 表示不修改
type UpdateTextInput struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Content     *string               `json:"content"`
	Topic       *string               `json:"topic"`
	Difficulty  *model.TextDifficulty `json:"difficulty"`
	Status      *model.TextStatus     `json:"status"`
	Order       *int                  `json:"order"`
}

func (s *TextService) Update(textID uint, input *UpdateTextInput) (*model.Text, error) {
	text, err := s.GetForTeacher(textID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		text.Title = *input.Title
	}
	if input.Description != nil {
		text.Description = *input.Description
	}
	if input.Content != nil {
		text.Content = util.CleanExtractedText(*input.Content)
		text.EstimatedTimeMinutes = text.EstimateReadingTime()
	}
	if input.Topic != nil {
		text.Topic = *input.Topic
	}
	if input.Difficulty != nil {
		text.Difficulty = *input.Difficulty
	}
	if input.Status != nil {
		text.Status = *input.Status
	}
	if input.Order != nil {
		text.Order = *input.Order
	}

	if err := s.TextRepo.Update(text); err != nil {
		return nil, err
	}
	return text, nil
}

// Delete 删除文本，关联测验和作答记录一并清理
func (s *TextService) Delete(ctx context.Context, textID uint) error {
	text, err := s.GetForTeacher(textID)
	if err != nil {
		return err
	}

	if text.HasQuiz {
		if err := s.QuizRepo.DeleteByTextID(text.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if text.FilePath != "" {
		if err := s.Storage.Delete(ctx, text.FilePath); err != nil {
			// 存储清理失败不阻塞删除
		}
	}
	return s.TextRepo.Delete(text.ID)
}

// DeleteQuiz 删除测验并复位文本的测验标记，学生可重新生成后作答
func (s *TextService) DeleteQuiz(textID uint) error {
	if _, err := s.GetForTeacher(textID); err != nil {
		return err
	}
	err := s.QuizRepo.DeleteByTextID(textID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuizNotFound
	}
	return err
}
