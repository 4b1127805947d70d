package controller

import (
	"net/http"
	"study_platform_backend/internal/util"
	"study_platform_backend/pkg/queue"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Queue *queue.Queue
}

func NewHealthController(db *gorm.DB, q *queue.Queue) *HealthController {
	return &HealthController{DB: db, Queue: q}
}

// @Summary 健康检查
// @Description 检查服务状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}
	if c.Queue != nil {
		if pending, err := c.Queue.PendingCount(ctx.Request.Context()); err == nil {
			components["queue"] = gin.H{"status": "up", "pending": pending}
		} else {
			components["queue"] = gin.H{"status": "down"}
		}
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
