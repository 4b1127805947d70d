package controller

import (
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/service"
	"study_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TextController 学生端的文本与测验入口
type TextController struct {
	TextService *service.TextService
	QuizService *service.QuizService
}

func NewTextController(textService *service.TextService, quizService *service.QuizService) *TextController {
	return &TextController{
		TextService: textService,
		QuizService: quizService,
	}
}

// @Summary 文本列表
// @Tags 学习文本
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/texts [get]
func (c *TextController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, limit := util.ParsePagination(ctx.Query("page"), ctx.Query("limit"))

	items, total, err := c.TextService.ListForStudent(claims.UserID, page, limit)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// @Summary 文本详情
// @Tags 学习文本
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Success 200 {object} util.Response
// @Router /api/texts/{id} [get]
func (c *TextController) Get(ctx *gin.Context) {
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	text, err := c.TextService.GetForStudent(textID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, text)
}

// @Summary 获取测验题目
// @Description 每名学生每份测验只能作答一次，已作答会返回 403
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Success 200 {object} util.Response
// @Router /api/texts/{id}/quiz [get]
func (c *TextController) GetQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	if _, err := c.TextService.GetForStudent(textID); err != nil {
		handleServiceError(ctx, err)
		return
	}

	quiz, err := c.QuizService.GetQuizForStudent(claims.UserID, textID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 提交测验答案
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Param body body model.QuizSubmission true "作答内容"
// @Success 200 {object} util.Response
// @Router /api/texts/{id}/quiz/submit [post]
func (c *TextController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	var submission model.QuizSubmission
	if err := ctx.ShouldBindJSON(&submission); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.Submit(claims.UserID, textID, &submission)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
