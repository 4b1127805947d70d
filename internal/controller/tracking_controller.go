package controller

import (
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/service"
	"study_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TrackingController struct {
	Service *service.TrackingService
}

func NewTrackingController(svc *service.TrackingService) *TrackingController {
	return &TrackingController{Service: svc}
}

// @Summary 开始学习会话
// @Tags 行为跟踪
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.SessionStartRequest true "会话信息"
// @Success 201 {object} util.Response
// @Router /api/tracking/sessions/start [post]
func (c *TrackingController) StartSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req model.SessionStartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.Service.StartSession(claims.UserID, &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// @Summary 同步会话数据
// @Description 批量上报事件、分节停留和热力图采样，服务端重算计数器
// @Tags 行为跟踪
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.SessionSyncRequest true "同步数据"
// @Success 200 {object} util.Response
// @Router /api/tracking/sessions/sync [post]
func (c *TrackingController) SyncSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req model.SessionSyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.Service.Sync(claims.UserID, &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// @Summary 结束学习会话
// @Tags 行为跟踪
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.SessionEndRequest true "收尾数据"
// @Success 200 {object} util.Response
// @Router /api/tracking/sessions/end [post]
func (c *TrackingController) EndSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req model.SessionEndRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	metrics, err := c.Service.EndSession(claims.UserID, &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, metrics)
}

// @Summary 会话详情
// @Tags 行为跟踪
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/tracking/sessions/{sessionId} [get]
func (c *TrackingController) SessionDetail(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	sessionID := ctx.Param("sessionId")
	if sessionID == "" {
		util.BadRequest(ctx, "invalid session id")
		return
	}

	detail, err := c.Service.GetSessionDetail(claims.UserID, sessionID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
