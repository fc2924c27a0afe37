package api

import (
	"time"

	"github.com/SlpAus/item-status-backend/internal/item"
	"github.com/SlpAus/item-status-backend/internal/platform/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter 创建并装配好完整的gin引擎
func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(RequestID())

	// CORS中间件
	// 合同要求预检返回200空响应，而不是gin-contrib默认的204
	r.Use(cors.New(cors.Config{
		AllowOrigins:              cfg.Server.Cors.AllowedOrigins,
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Content-Type"},
		ExposeHeaders:             []string{"Content-Length"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: 200,
	}))

	// 识别之外的HTTP方法返回纯文本405
	r.HandleMethodNotAllowed = true
	r.NoMethod(item.MethodNotAllowed)

	SetupRoutes(r)
	return r
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// 状态相关的路由 /api/status
		api.GET("/status", item.GetStatus)
		api.POST("/status", item.UpsertStatus)
		// 不带Origin头的OPTIONS不会被CORS中间件应答，这里兜底
		api.OPTIONS("/status", item.Preflight)

		// 健康检查
		api.GET("/health", item.GetHealth)
	}
}
