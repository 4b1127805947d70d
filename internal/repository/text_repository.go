package repository

import (
	"study_platform_backend/internal/model"

	"gorm.io/gorm"
)

type TextRepository struct {
	DB *gorm.DB
}

func NewTextRepository(db *gorm.DB) *TextRepository {
	return &TextRepository{DB: db}
}

func (r *TextRepository) Create(text *model.Text) error {
	return r.DB.Create(text).Error
}

func (r *TextRepository) FindByID(id uint) (*model.Text, error) {
	var text model.Text
	err := r.DB.First(&text, id).Error
	return &text, err
}

// FindActive 学生端只看到已发布的文本，按 order 再按创建时间排序
func (r *TextRepository) FindActive(page, limit int) ([]model.Text, int64, error) {
	var texts []model.Text
	var total int64

	query := r.DB.Model(&model.Text{}).Where("status = ?", model.TextActive)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("`order` ASC, created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&texts).Error
	return texts, total, err
}

// FindAll 教师端看到全部状态的文本
func (r *TextRepository) FindAll(page, limit int) ([]model.Text, int64, error) {
	var texts []model.Text
	var total int64

	if err := r.DB.Model(&model.Text{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.DB.Order("`order` ASC, created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&texts).Error
	return texts, total, err
}

func (r *TextRepository) Update(text *model.Text) error {
	return r.DB.Save(text).Error
}

func (r *TextRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Text{}, id).Error
}

func (r *TextRepository) SetHasQuiz(id uint, hasQuiz bool) error {
	return r.DB.Model(&model.Text{}).
		Where("id = ?", id).
		Update("has_quiz", hasQuiz).
		Error
}
