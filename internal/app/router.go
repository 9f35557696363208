package app

import (
	"studybuddy_backend/internal/middleware"
	"studybuddy_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config.JWT.Secret))
	{
		a.registerStudyBuddyRoutes(authGroup, c)
		a.registerAnalyticsRoutes(authGroup, c)

		authGroup.POST("/chat", middleware.UserRateLimit(a.chatLimiter), c.chat.Chat)
	}
}

func (a *App) registerStudyBuddyRoutes(group *gin.RouterGroup, c *controllers) {
	studyBuddy := group.Group("/studybuddy")
	{
		studyBuddy.POST("/report", c.studyBuddy.Report)
		studyBuddy.GET("/hydrate", c.studyBuddy.Hydrate)
		studyBuddy.GET("/next", c.studyBuddy.Next)
	}
}

// 角色校验在服务层完成，错误信息随接口不同
func (a *App) registerAnalyticsRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/gap-detector", c.analytics.GapDetector)
	group.GET("/teacher/insights", c.analytics.TeacherInsights)
}
