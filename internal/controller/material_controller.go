package controller

import (
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/service"
	"study_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MaterialController struct {
	MaterialService *service.MaterialService
	Recommender     *service.RecommendationService
}

func NewMaterialController(materialService *service.MaterialService, recommender *service.RecommendationService) *MaterialController {
	return &MaterialController{
		MaterialService: materialService,
		Recommender:     recommender,
	}
}

type GenerateMaterialRequest struct {
	TextID       uint               `json:"text_id" binding:"required"`
	MaterialType model.MaterialType `json:"material_type" binding:"required"`
}

// @Summary 请求生成学习材料
// @Description 入队异步生成，返回请求 ID 供轮询
// @Tags 学习材料
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GenerateMaterialRequest true "生成参数"
// @Success 202 {object} util.Response
// @Router /api/materials/generate [post]
func (c *MaterialController) Generate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req GenerateMaterialRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	request, err := c.MaterialService.RequestGeneration(ctx.Request.Context(), claims.UserID, req.TextID, req.MaterialType)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Accepted(ctx, request)
}

// @Summary 查询生成状态
// @Tags 学习材料
// @Produce json
// @Security BearerAuth
// @Param id path int true "请求ID"
// @Success 200 {object} util.Response
// @Router /api/materials/requests/{id} [get]
func (c *MaterialController) RequestStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	requestID := util.MustParseUint(ctx.Param("id"))
	if requestID == 0 {
		util.BadRequest(ctx, "invalid request id")
		return
	}

	req, err := c.MaterialService.GetRequestStatus(claims.UserID, requestID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, req)
}

// @Summary 材料详情
// @Tags 学习材料
// @Produce json
// @Security BearerAuth
// @Param id path int true "材料ID"
// @Success 200 {object} util.Response
// @Router /api/materials/{id} [get]
func (c *MaterialController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	materialID := util.MustParseUint(ctx.Param("id"))
	if materialID == 0 {
		util.BadRequest(ctx, "invalid material id")
		return
	}

	material, err := c.MaterialService.GetMaterial(claims.UserID, materialID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, material)
}

// @Summary 某文本下我的材料列表
// @Tags 学习材料
// @Produce json
// @Security BearerAuth
// @Param textId query int true "文本ID"
// @Success 200 {object} util.Response
// @Router /api/materials [get]
func (c *MaterialController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	textID := util.MustParseUint(ctx.Query("textId"))
	if textID == 0 {
		util.BadRequest(ctx, "textId is required")
		return
	}

	materials, err := c.MaterialService.ListMaterials(claims.UserID, textID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, materials)
}

// @Summary 材料类型推荐
// @Description 基于历史材料效果推荐下一步学习材料类型
// @Tags 学习材料
// @Produce json
// @Security BearerAuth
// @Param textId query int true "文本ID"
// @Success 200 {object} util.Response
// @Router /api/materials/recommendation [get]
func (c *MaterialController) Recommendation(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	textID := util.MustParseUint(ctx.Query("textId"))
	if textID == 0 {
		util.BadRequest(ctx, "textId is required")
		return
	}

	rec, err := c.Recommender.Recommend(claims.UserID, textID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}
