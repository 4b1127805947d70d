package app

import (
	"study_platform_backend/internal/config"
	"study_platform_backend/internal/middleware"
	"study_platform_backend/internal/model"
	"study_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/me", c.auth.Me)

		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 文本与测验
	rg.GET("/texts", c.text.List)
	rg.GET("/texts/:id", c.text.Get)
	rg.GET("/texts/:id/quiz", c.text.GetQuiz)
	rg.POST("/texts/:id/quiz/submit", c.text.SubmitQuiz)

	// 学习材料
	rg.POST("/materials/generate", c.material.Generate)
	rg.GET("/materials/requests/:id", c.material.RequestStatus)
	rg.GET("/materials/recommendation", c.material.Recommendation)
	rg.GET("/materials/:id", c.material.Get)
	rg.GET("/materials", c.material.List)

	// 行为跟踪
	rg.POST("/tracking/sessions/start", c.tracking.StartSession)
	rg.POST("/tracking/sessions/sync", c.tracking.SyncSession)
	rg.POST("/tracking/sessions/end", c.tracking.EndSession)
	rg.GET("/tracking/sessions/:sessionId", c.tracking.SessionDetail)

	// 学习分析
	rg.GET("/analytics/overview", c.analytics.Overview)
	rg.GET("/analytics/sessions", c.analytics.Sessions)
	rg.GET("/analytics/materials/:id/heatmap", c.analytics.MaterialHeatmap)

	// 用户
	rg.GET("/users/profile", c.user.Profile)
	rg.GET("/users/attempts", c.user.Attempts)
	rg.GET("/users/attempts/:id", c.user.AttemptDetail)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/texts", c.teacherText.List)
		teacher.POST("/texts", c.teacherText.Create)
		teacher.GET("/texts/:id", c.teacherText.Get)
		teacher.PUT("/texts/:id", c.teacherText.Update)
		teacher.DELETE("/texts/:id", c.teacherText.Delete)
		teacher.POST("/texts/:id/quiz", c.teacherText.GenerateQuiz)
		teacher.DELETE("/texts/:id/quiz", c.teacherText.DeleteQuiz)
	}
}
