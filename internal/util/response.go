package util

import (
	"net/http"

	"studybuddy_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse 统一错误结构
type ErrorResponse struct {
	Error string `json:"error"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Error: message})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "An unexpected error occurred")
}

// RespondError 将 AppError 写回客户端，内部原因只写日志
func RespondError(c *gin.Context, err error) {
	appErr := AsAppError(err)
	status := appErr.Status()
	if status >= http.StatusInternalServerError || appErr.Err != nil {
		fields := []zap.Field{
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		}
		if claims := GetUserFromContext(c); claims != nil {
			fields = append(fields, zap.String("user_id", claims.UserID()))
		}
		logger.Log.Error("[INTERNAL] request failed", fields...)
	}
	Error(c, status, appErr.Message)
}
