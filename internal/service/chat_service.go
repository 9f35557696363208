package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"studybuddy_backend/internal/config"
	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/logger"
	"studybuddy_backend/pkg/monitoring"
	"studybuddy_backend/pkg/tracing"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	msgGatewayUnreachable = "Unable to connect to AI service. Please try again later."
	msgGatewayUnavailable = "Service temporarily unavailable. Please try again"
	msgGatewayPayment     = "AI service unavailable. Please contact support."
)

var errGatewayServerError = errors.New("ai gateway returned 500")

const systemPromptTemplate = `You are Happy, a friendly and encouraging AI tutor specialized for the Kenyan Competency-Based Curriculum (CBC).

**Your Teaching Approach:**
- Follow CBC pedagogy: inquiry-based learning, discovery, and real-life application
- Use the "Explain → Example → Check Understanding" pattern for academic questions
- Keep explanations clear, concise, and age-appropriate for %s
- Use Kenyan-relevant examples (e.g., matatu for transport, ugali for food, safari for journey)
- Include simple Kiswahili phrases occasionally for encouragement: "Hongera!" (Well done!), "Vizuri sana!" (Very good!), "Endelea!" (Continue!)

**Current Context:**
- Grade Level: %s
- Subject Focus: %s

**Response Structure:**
1. **Explain:** Give a clear, simple explanation of the concept
2. **Example:** Provide a Kenyan context example that students can relate to
3. **Check:** Ask 1-2 quick questions to check understanding

**Guidelines:**
- If a question is ambiguous, ask a clarifying question
- For complex topics, break them into smaller, digestible parts
- Always end with a short motivational message
- If asked about non-academic topics, gently redirect to learning
- Adapt your language complexity to the grade level

Remember: You're here to inspire curiosity and build confidence. Make learning fun and relevant!`

// SystemPrompt 按年级和科目生成CBC导师提示词
func SystemPrompt(grade, subject string) string {
	audience, level := grade, grade
	if grade == "" {
		audience, level = "Grade 1-9", "Grade 1"
	}
	if subject == "" {
		subject = "General Learning"
	}
	return fmt.Sprintf(systemPromptTemplate, audience, level, subject)
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatService 转发聊天请求到模型网关，成功时把网关的事件流原样交给调用方
type ChatService struct {
	HTTPClient *http.Client

	// 重试间隔 min(RetryInitial * 2^n, RetryMax)
	RetryInitial time.Duration
	RetryMax     time.Duration

	mu  sync.RWMutex
	cfg config.AIConfig
}

func NewChatService(cfg config.AIConfig) *ChatService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatService{
		// 超时只限制建立连接和响应头，流式正文由请求 ctx 控制
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   10,
			},
		},
		RetryInitial: time.Second,
		RetryMax:     5 * time.Second,
		cfg:          cfg,
	}
}

// UpdateConfig 配置热更新
func (s *ChatService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *ChatService) config() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// BuildMessages 系统提示词加最近 ChatContextSize 条消息
func BuildMessages(req *ChatRequest) []ChatMessage {
	history := req.Messages
	if len(history) > util.ChatContextSize {
		history = history[len(history)-util.ChatContextSize:]
	}
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: SystemPrompt(req.Grade, req.Subject)})
	return append(messages, history...)
}

// Stream 返回网关响应正文，调用方负责关闭。
// 只有网络错误和 500 会重试，其余状态码直接映射为 AppError。
func (s *ChatService) Stream(ctx context.Context, userID string, req *ChatRequest) (io.ReadCloser, error) {
	cfg := s.config()
	ctx, span := tracing.Start(ctx, "ChatService.Stream",
		attribute.String("user.id", userID),
		attribute.String("ai.model", cfg.Model))
	defer span.End()

	if cfg.APIKey == "" {
		err := errors.New("ai api key is not configured")
		tracing.RecordError(span, err)
		return nil, util.NewInternalError(err)
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model:    cfg.Model,
		Messages: BuildMessages(req),
		Stream:   true,
	})
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"

	attempts := 0
	lastStatus := 0
	operation := func() (*http.Response, error) {
		attempts++
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

		resp, err := s.HTTPClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			monitoring.UpstreamRetries.WithLabelValues("network_error").Inc()
			logger.Log.Warn("AI gateway request failed",
				zap.String("user_id", userID),
				zap.Int("attempt", attempts),
				zap.Error(err))
			return nil, err
		}

		lastStatus = resp.StatusCode
		if resp.StatusCode == http.StatusInternalServerError {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			monitoring.UpstreamRetries.WithLabelValues("server_error").Inc()
			logger.Log.Warn("AI gateway returned 500",
				zap.String("user_id", userID),
				zap.Int("attempt", attempts))
			return nil, errGatewayServerError
		}
		monitoring.UpstreamRetries.WithLabelValues(fmt.Sprintf("status_%d", resp.StatusCode)).Inc()
		return resp, nil
	}

	maxTries := cfg.MaxRetries
	if maxTries <= 0 {
		maxTries = 1
	}
	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(maxTries)),
	)
	span.SetAttributes(attribute.Int("ai.attempts", attempts))
	if err != nil {
		tracing.RecordError(span, err)
		switch {
		case ctx.Err() != nil:
			return nil, util.NewInternalError(ctx.Err())
		case errors.Is(err, errGatewayServerError) || lastStatus == http.StatusInternalServerError:
			return nil, &util.AppError{Kind: util.KindInternal, Message: msgGatewayUnavailable, Err: err}
		default:
			return nil, util.NewUpstreamError(msgGatewayUnreachable, err)
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, util.NewRateLimitedError()
	case http.StatusPaymentRequired:
		return nil, &util.AppError{Kind: util.KindPaymentRequired, Message: msgGatewayPayment}
	default:
		return nil, &util.AppError{
			Kind:    util.KindInternal,
			Message: msgGatewayUnavailable,
			Err:     fmt.Errorf("ai gateway status %d", resp.StatusCode),
		}
	}
}

func (s *ChatService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.RetryInitial
	b.MaxInterval = s.RetryMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return b
}
