package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chartmentor/internal/logger"
)

// OpenAIChatClient 兼容 OpenAI / DeepSeek / Qwen 的 /chat/completions 接口。
type OpenAIChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  *float64 // nil 使用默认 0.5；显式 0 原样发送
	Timeout      time.Duration
	MaxRetries   *int // 429/5xx 重试次数，nil 表示默认 2 次，<=0 表示不重试
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

func (c *OpenAIChatClient) endpoint() string {
	url := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// 配置里可能已经写了完整路径
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

const (
	defaultTemperature = 0.5
	defaultMaxRetries  = 2
)

func (c *OpenAIChatClient) retries() int {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	return max(*c.MaxRetries, 0)
}

func (c *OpenAIChatClient) temperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

func (c *OpenAIChatClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one system+user exchange and returns the first choice.
func (c *OpenAIChatClient) Complete(ctx context.Context, payload ChatPayload) (string, error) {
	url := c.endpoint()
	messages := make([]chatMessage, 0, 2)
	if payload.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: payload.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: payload.User})
	body, err := json.Marshal(chatRequest{Model: c.Model, Messages: messages, Temperature: c.temperature(), MaxTokens: payload.MaxTokens})
	if err != nil {
		return "", err
	}
	logger.LogModelRequest(c.Model, payload.System, payload.User, string(body))
	logger.Debugf("[model] POST %s headers=%v", url, c.maskedHeaders())

	httpc := c.client()
	maxRetries := c.retries()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var out chatResponse
			derr := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if derr != nil {
				return "", fmt.Errorf("decode chat response: %w", derr)
			}
			if len(out.Choices) == 0 {
				return "", fmt.Errorf("empty choices")
			}
			content := out.Choices[0].Message.Content
			logger.LogModelResponse(c.Model, content)
			return content, nil
		}

		var eresp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryable(resp.StatusCode) || attempt == maxRetries {
			break
		}
		wait := retryAfter(resp.Header.Get("Retry-After"), attempt)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter honours Retry-After seconds, else backs off 0.8s, 1.6s, 3.2s... capped at 8s.
func retryAfter(header string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	wait := (800 * time.Millisecond) << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

// maskedHeaders 仅用于日志：密钥只保留后 4 位。
func (c *OpenAIChatClient) maskedHeaders() map[string]string {
	out := map[string]string{"Content-Type": "application/json"}
	if c.APIKey != "" {
		out["Authorization"] = "Bearer " + mask(c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = mask(v)
		}
		out[k] = v
	}
	return out
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// OpenAIModelProvider adapts OpenAIChatClient to ModelProvider.
type OpenAIModelProvider struct {
	id     string
	client *OpenAIChatClient
}

func NewOpenAIModelProvider(id string, client *OpenAIChatClient) *OpenAIModelProvider {
	return &OpenAIModelProvider{id: id, client: client}
}

func (p *OpenAIModelProvider) ID() string { return p.id }

func (p *OpenAIModelProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	return p.client.Complete(ctx, payload)
}
