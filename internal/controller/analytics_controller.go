package controller

import (
	"study_platform_backend/internal/service"
	"study_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	Service *service.AnalyticsService
}

func NewAnalyticsController(svc *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Service: svc}
}

// @Summary 学习总览
// @Tags 学习分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/analytics/overview [get]
func (c *AnalyticsController) Overview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	overview, err := c.Service.Overview(claims.UserID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}

// @Summary 材料热力图
// @Description 聚合该材料所有会话的点击热区
// @Tags 学习分析
// @Produce json
// @Security BearerAuth
// @Param id path int true "材料ID"
// @Success 200 {object} util.Response
// @Router /api/analytics/materials/{id}/heatmap [get]
func (c *AnalyticsController) MaterialHeatmap(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	materialID := util.MustParseUint(ctx.Param("id"))
	if materialID == 0 {
		util.BadRequest(ctx, "invalid material id")
		return
	}

	heatmap, err := c.Service.MaterialHeatmap(claims.UserID, materialID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, heatmap)
}

// @Summary 历史会话列表
// @Tags 学习分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/analytics/sessions [get]
func (c *AnalyticsController) Sessions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	sessions, err := c.Service.ListSessionsByUser(claims.UserID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sessions)
}
