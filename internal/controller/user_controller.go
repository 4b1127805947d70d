package controller

import (
	"study_platform_backend/internal/service"
	"study_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
	QuizService *service.QuizService
}

func NewUserController(userService *service.UserService, quizService *service.QuizService) *UserController {
	return &UserController{
		UserService: userService,
		QuizService: quizService,
	}
}

// @Summary 学习档案
// @Description 弱项主题、连续学习天数和作答统计
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/users/profile [get]
func (c *UserController) Profile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	profile, err := c.UserService.GetProfile(claims.UserID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// @Summary 作答历史
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/users/attempts [get]
func (c *UserController) Attempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	attempts, err := c.QuizService.GetAttemptsByUser(claims.UserID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// @Summary 作答详情
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param id path int true "作答记录ID"
// @Success 200 {object} util.Response
// @Router /api/users/attempts/{id} [get]
func (c *UserController) AttemptDetail(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	attemptID := util.MustParseUint(ctx.Param("id"))
	if attemptID == 0 {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	attempt, err := c.QuizService.GetAttemptDetail(claims.UserID, attemptID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}
