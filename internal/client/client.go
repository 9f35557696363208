// Package client 是 StudyBuddy 接口的 HTTP 客户端，供 buddyctl 与离线队列使用。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studybuddy_backend/internal/model"
)

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("studybuddy api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("studybuddy api: status %d: %s", e.StatusCode, e.Message)
}

// Retryable 5xx 与 429 视为服务端暂时不可用
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized 令牌缺失、过期或无权限
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsRetryable 网络错误、超时、429 和 5xx 可以稍后重放；其余 4xx 与调用方主动取消不可以
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// Report 上报请求体；CompletedAt 在离线重放时保留原始完成时间
type Report struct {
	ActivityID   string                 `json:"activity_id"`
	Score        float64                `json:"score"`
	TimeSpentSec int                    `json:"time_spent_sec"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &envelope) != nil {
			envelope.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SubmitReport POST /api/studybuddy/report
func (c *Client) SubmitReport(ctx context.Context, report *Report) (*model.ReportResult, error) {
	var result model.ReportResult
	if err := c.do(ctx, http.MethodPost, "/api/studybuddy/report", report, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Hydrate(ctx context.Context) (*model.HydrateResult, error) {
	var result model.HydrateResult
	if err := c.do(ctx, http.MethodGet, "/api/studybuddy/hydrate", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Next(ctx context.Context) (*model.NextActivity, error) {
	var result model.NextActivity
	if err := c.do(ctx, http.MethodGet, "/api/studybuddy/next", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health 服务和数据库均可用时返回 nil
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}
