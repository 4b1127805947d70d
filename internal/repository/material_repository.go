package repository

import (
	"study_platform_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type MaterialRepository struct {
	DB *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

func (r *MaterialRepository) Create(material *model.Material) error {
	return r.DB.Create(material).Error
}

func (r *MaterialRepository) FindByID(id uint) (*model.Material, error) {
	var material model.Material
	err := r.DB.First(&material, id).Error
	return &material, err
}

func (r *MaterialRepository) FindByUserAndText(userID, textID uint) ([]model.Material, error) {
	var materials []model.Material
	err := r.DB.Where("user_id = ? AND text_id = ?", userID, textID).
		Order("generated_at DESC").
		Find(&materials).Error
	return materials, err
}

// FindLatest 某用户某文本某类型最近生成的材料
func (r *MaterialRepository) FindLatest(userID, textID uint, materialType model.MaterialType) (*model.Material, error) {
	var material model.Material
	err := r.DB.Where("user_id = ? AND text_id = ? AND material_type = ?", userID, textID, materialType).
		Order("generated_at DESC").
		First(&material).Error
	return &material, err
}

func (r *MaterialRepository) Update(material *model.Material) error {
	return r.DB.Save(material).Error
}

// StudiedSince 判断该用户在某时刻之后是否实际学习过这篇文本的材料
func (r *MaterialRepository) StudiedSince(userID, textID uint, since time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Material{}).
		Where("user_id = ? AND text_id = ? AND last_studied_at > ?", userID, textID, since).
		Count(&count).Error
	return count > 0, err
}

// ---------- 生成请求 ----------

func (r *MaterialRepository) CreateRequest(req *model.MaterialRequest) error {
	return r.DB.Create(req).Error
}

func (r *MaterialRepository) FindRequestByID(id uint) (*model.MaterialRequest, error) {
	var req model.MaterialRequest
	err := r.DB.First(&req, id).Error
	return &req, err
}

// FindPendingRequest 同一用户、文本、类型上未完成的请求
func (r *MaterialRepository) FindPendingRequest(userID, textID uint, materialType model.MaterialType) (*model.MaterialRequest, error) {
	var req model.MaterialRequest
	err := r.DB.Where("user_id = ? AND text_id = ? AND material_type = ? AND status IN ?",
		userID, textID, materialType,
		[]model.RequestStatus{model.RequestPending, model.RequestProcessing}).
		First(&req).Error
	return &req, err
}

func (r *MaterialRepository) UpdateRequest(req *model.MaterialRequest) error {
	return r.DB.Save(req).Error
}

func (r *MaterialRepository) UpdateRequestStatus(id uint, status model.RequestStatus, errMsg string) error {
	updates := map[string]interface{}{"status": status}
	if errMsg != "" {
		updates["error_message"] = errMsg
	}
	return r.DB.Model(&model.MaterialRequest{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

// ---------- 材料效果 ----------

func (r *MaterialRepository) CreateEffectiveness(eff *model.MaterialEffectiveness) error {
	return r.DB.Create(eff).Error
}

func (r *MaterialRepository) FindEffectiveness(userID, textID uint) ([]model.MaterialEffectiveness, error) {
	var records []model.MaterialEffectiveness
	err := r.DB.Where("user_id = ? AND text_id = ?", userID, textID).
		Find(&records).Error
	return records, err
}

func (r *MaterialRepository) FindEffectivenessByUser(userID uint) ([]model.MaterialEffectiveness, error) {
	var records []model.MaterialEffectiveness
	err := r.DB.Where("user_id = ?", userID).Find(&records).Error
	return records, err
}

// GlobalEffectivenessByType 全体用户按材料类型的平均提升，用于冷启动回退
func (r *MaterialRepository) GlobalEffectivenessByType() (map[model.MaterialType]float64, error) {
	type row struct {
		MaterialType model.MaterialType
		AvgImp       float64
	}
	var rows []row
	err := r.DB.Model(&model.MaterialEffectiveness{}).
		Select("material_type, AVG(improvement) as avg_imp").
		Group("material_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[model.MaterialType]float64, len(rows))
	for _, r := range rows {
		result[r.MaterialType] = r.AvgImp
	}
	return result, nil
}
