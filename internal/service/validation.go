package service

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
	"unicode/utf8"

	"studybuddy_backend/internal/util"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// 允许客户端与服务端的时钟偏差
const completedAtSkew = 5 * time.Minute

// ReportInput 校验通过的上报内容
type ReportInput struct {
	ActivityID   string
	Score        float64
	TimeSpentSec int
	Metadata     map[string]interface{}
	CompletedAt  time.Time
}

type rawReport struct {
	ActivityID   interface{} `json:"activity_id"`
	Score        interface{} `json:"score"`
	TimeSpentSec interface{} `json:"time_spent_sec"`
	Metadata     interface{} `json:"metadata"`
	CompletedAt  interface{} `json:"completed_at"`
}

// ParseReport 按字段顺序校验上报请求体，返回第一个不合法字段的错误信息
func ParseReport(body []byte, now time.Time) (*ReportInput, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, util.NewValidationError("Invalid request body")
	}
	var raw rawReport
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, util.NewValidationError("Invalid request body")
	}

	activityID, ok := raw.ActivityID.(string)
	if !ok || activityID == "" {
		return nil, util.NewValidationError("Activity ID is required")
	}
	if validate.Var(activityID, "uuid") != nil {
		return nil, util.NewValidationError("Invalid activity ID format")
	}

	score, ok := raw.Score.(float64)
	if !ok {
		return nil, util.NewValidationError("Score is required and must be a number")
	}
	if validate.Var(score, "gte=0,lte=1") != nil {
		return nil, util.NewValidationError("Score must be between 0 and 1")
	}

	timeSpent, ok := raw.TimeSpentSec.(float64)
	if !ok || timeSpent == 0 {
		return nil, util.NewValidationError("Time spent is required and must be a number")
	}
	if timeSpent != math.Trunc(timeSpent) || timeSpent <= 0 {
		return nil, util.NewValidationError("Time spent must be a positive integer")
	}
	if timeSpent > util.MaxTimeSpentSec {
		return nil, util.NewValidationError("Time spent cannot exceed 7200 seconds (2 hours)")
	}

	input := &ReportInput{
		ActivityID:   activityID,
		Score:        score,
		TimeSpentSec: int(timeSpent),
		Metadata:     map[string]interface{}{},
		CompletedAt:  now,
	}

	if _, present := fields["metadata"]; present && !isJSONNull(fields["metadata"]) {
		metadata, ok := raw.Metadata.(map[string]interface{})
		if !ok {
			return nil, util.NewValidationError("Metadata must be an object if provided")
		}
		for _, v := range metadata {
			switch v.(type) {
			case string, float64, bool, nil:
			default:
				return nil, util.NewValidationError("Metadata values must be strings, numbers or booleans")
			}
		}
		input.Metadata = metadata
	}

	if _, present := fields["completed_at"]; present && !isJSONNull(fields["completed_at"]) {
		s, ok := raw.CompletedAt.(string)
		if !ok {
			return nil, util.NewValidationError("Completed at must be an RFC 3339 timestamp")
		}
		completedAt, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, util.NewValidationError("Completed at must be an RFC 3339 timestamp")
		}
		if completedAt.After(now.Add(completedAtSkew)) {
			return nil, util.NewValidationError("Completed at cannot be in the future")
		}
		input.CompletedAt = completedAt
	}

	return input, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ChatMessage 转发给模型网关的单条消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage
	Grade    string
	Subject  string
}

// ParseChatRequest 校验聊天请求，规则与上限见 util 中的常量
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	var raw struct {
		Messages json.RawMessage `json:"messages"`
		Grade    string          `json:"grade"`
		Subject  string          `json:"subject"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, util.NewValidationError("Invalid request body")
	}

	var items []json.RawMessage
	if len(raw.Messages) == 0 || isJSONNull(raw.Messages) || json.Unmarshal(raw.Messages, &items) != nil {
		return nil, util.NewValidationError("Messages must be an array")
	}
	if len(items) == 0 {
		return nil, util.NewValidationError("Messages array cannot be empty")
	}
	if len(items) > util.MaxChatMessages {
		return nil, util.NewValidationError("Too many messages. Maximum 50 allowed")
	}

	req := &ChatRequest{
		Messages: make([]ChatMessage, 0, len(items)),
		Grade:    raw.Grade,
		Subject:  raw.Subject,
	}
	for _, item := range items {
		var msg struct {
			Role    interface{} `json:"role"`
			Content interface{} `json:"content"`
		}
		if err := json.Unmarshal(item, &msg); err != nil {
			return nil, util.NewValidationError("Invalid message role")
		}
		role, _ := msg.Role.(string)
		if validate.Var(role, "required,oneof=user assistant system") != nil {
			return nil, util.NewValidationError("Invalid message role")
		}
		content, ok := msg.Content.(string)
		if !ok || utf8.RuneCountInString(content) > util.MaxMessageLength {
			return nil, util.NewValidationError("Message content must be string with max 4000 characters")
		}
		req.Messages = append(req.Messages, ChatMessage{Role: role, Content: content})
	}
	return req, nil
}
