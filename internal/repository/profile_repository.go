package repository

import (
	"errors"
	"study_platform_backend/internal/model"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

// FindOrCreate 获取用户档案，不存在时创建空档案
func (r *ProfileRepository) FindOrCreate(userID uint) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.DB.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = model.UserProfile{UserID: userID}
		if err := r.DB.Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) Update(profile *model.UserProfile) error {
	return r.DB.Save(profile).Error
}

func (r *ProfileRepository) AddStudyMinutes(userID uint, minutes int) error {
	return r.DB.Model(&model.UserProfile{}).
		Where("user_id = ?", userID).
		Update("total_study_time_minutes", gorm.Expr("total_study_time_minutes + ?", minutes)).
		Error
}
