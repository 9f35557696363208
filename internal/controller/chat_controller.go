package controller

import (
	"errors"
	"io"
	"net/http"

	"studybuddy_backend/internal/service"
	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatController AI 导师聊天代理
type ChatController struct {
	ChatService *service.ChatService
}

func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{ChatService: chatService}
}

// Chat godoc
// @Summary AI 导师对话
// @Description 校验消息后转发到模型网关，以 text/event-stream 原样返回
// @Tags AI
// @Accept json
// @Produce text/event-stream
// @Security ApiKeyAuth
// @Param request body object true "messages, grade, subject"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} util.ErrorResponse
// @Failure 402 {object} util.ErrorResponse
// @Failure 429 {object} util.ErrorResponse
// @Failure 503 {object} util.ErrorResponse
// @Router /api/chat [post]
func (ctrl *ChatController) Chat(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	body, ok := readBody(c, util.MaxChatBodyBytes)
	if !ok {
		return
	}
	req, err := service.ParseChatRequest(body)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	stream, err := ctrl.ChatService.Stream(c.Request.Context(), claims.UserID(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	buf := make([]byte, 4096)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				return
			}
			c.Writer.Flush()
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && c.Request.Context().Err() == nil {
				logger.Log.Warn("Chat stream interrupted",
					zap.String("user_id", claims.UserID()),
					zap.Error(readErr))
			}
			return
		}
	}
}
