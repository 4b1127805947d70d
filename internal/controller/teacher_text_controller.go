package controller

import (
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/service"
	"study_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TeacherTextController 教师端的文本管理
type TeacherTextController struct {
	TextService *service.TextService
	QuizService *service.QuizService
}

func NewTeacherTextController(textService *service.TextService, quizService *service.QuizService) *TeacherTextController {
	return &TeacherTextController{
		TextService: textService,
		QuizService: quizService,
	}
}

// @Summary 全部文本列表
// @Tags 教师-文本管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/teacher/texts [get]
func (c *TeacherTextController) List(ctx *gin.Context) {
	page, limit := util.ParsePagination(ctx.Query("page"), ctx.Query("limit"))

	items, total, err := c.TextService.ListForTeacher(page, limit)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// @Summary 文本详情（含正文）
// @Tags 教师-文本管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/texts/{id} [get]
func (c *TeacherTextController) Get(ctx *gin.Context) {
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	text, err := c.TextService.GetForTeacher(textID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, text)
}

// @Summary 创建文本
// @Description 支持 multipart 上传 txt/md 文件自动提取正文
// @Tags 教师-文本管理
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Success 201 {object} util.Response
// @Router /api/teacher/texts [post]
func (c *TeacherTextController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	input := &service.CreateTextInput{
		Title:       ctx.PostForm("title"),
		Description: ctx.PostForm("description"),
		Content:     ctx.PostForm("content"),
		Topic:       ctx.PostForm("topic"),
		Difficulty:  model.TextDifficulty(ctx.PostForm("difficulty")),
		Order:       int(util.MustParseUint(ctx.PostForm("order"))),
	}
	if input.Title == "" {
		util.BadRequest(ctx, "title is required")
		return
	}

	file, _ := ctx.FormFile("file")

	text, err := c.TextService.Create(ctx.Request.Context(), claims.UserID, input, file)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, text)
}

// @Summary 更新文本
// @Tags 教师-文本管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Param body body service.UpdateTextInput true "更新字段"
// @Success 200 {object} util.Response
// @Router /api/teacher/texts/{id} [put]
func (c *TeacherTextController) Update(ctx *gin.Context) {
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	var input service.UpdateTextInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	text, err := c.TextService.Update(textID, &input)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, text)
}

// @Summary 删除文本
// @Tags 教师-文本管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/texts/{id} [delete]
func (c *TeacherTextController) Delete(ctx *gin.Context) {
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	if err := c.TextService.Delete(ctx.Request.Context(), textID); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// @Summary 生成测验
// @Description 异步生成 20 道选择题，完成后文本标记 hasQuiz
// @Tags 教师-文本管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Success 202 {object} util.Response
// @Router /api/teacher/texts/{id}/quiz [post]
func (c *TeacherTextController) GenerateQuiz(ctx *gin.Context) {
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	if err := c.QuizService.RequestGeneration(ctx.Request.Context(), textID); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Accepted(ctx, gin.H{"textId": textID, "status": "generating"})
}

// @Summary 删除测验
// @Description 删除测验及全部作答记录，文本 hasQuiz 复位
// @Tags 教师-文本管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "文本ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/texts/{id}/quiz [delete]
func (c *TeacherTextController) DeleteQuiz(ctx *gin.Context) {
	textID := util.MustParseUint(ctx.Param("id"))
	if textID == 0 {
		util.BadRequest(ctx, "invalid text id")
		return
	}

	if err := c.TextService.DeleteQuiz(textID); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
