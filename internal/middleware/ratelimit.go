package middleware

import (
	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/logger"
	"studybuddy_backend/pkg/monitoring"
	"studybuddy_backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserRateLimit 按登录用户限流，必须放在 AuthMiddleware 之后。
// 计数存储不可用时放行请求。
func UserRateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), claims.UserID())
		if err != nil {
			logger.Log.Warn("Rate limiter unavailable", zap.String("user_id", claims.UserID()), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			monitoring.ChatRateLimited.Inc()
			util.RespondError(c, util.NewRateLimitedError())
			c.Abort()
			return
		}
		c.Next()
	}
}
