package repository

import (
	"study_platform_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.First(&quiz, id).Error
	return &quiz, err
}

func (r *QuizRepository) FindByTextID(textID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Where("text_id = ?", textID).First(&quiz).Error
	return &quiz, err
}

// DeleteByTextID 删除测验并级联清掉作答记录，事务内同时复位文本标记
func (r *QuizRepository) DeleteByTextID(textID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var quiz model.Quiz
		if err := tx.Where("text_id = ?", textID).First(&quiz).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&quiz).Error; err != nil {
			return err
		}
		return tx.Model(&model.Text{}).
			Where("id = ?", textID).
			Update("has_quiz", false).
			Error
	})
}
