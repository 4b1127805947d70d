package controller

import (
	"errors"
	"net/http"
	"study_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// handleServiceError 把服务层错误映射为 HTTP 状态码
func handleServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTextNotFound),
		errors.Is(err, util.ErrTextNotActive),
		errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrMaterialNotFound),
		errors.Is(err, util.ErrRequestNotFound),
		errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrQuizAlreadyTaken),
		errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrQuizAlreadyExists),
		errors.Is(err, util.ErrGenerationInProgress):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrAnswerCountMismatch),
		errors.Is(err, util.ErrInvalidMaterialType),
		errors.Is(err, util.ErrSessionClosed):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrEmailRegistered):
		util.Error(ctx, http.StatusConflict, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
