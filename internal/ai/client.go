// Package ai はLLMによる返信文生成とコメントの感情分類を提供する。
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultEndpoint はOpenAI APIのベースURL。
const defaultEndpoint = "https://api.openai.com/v1"

// CompletionRequest はチャット補完の1回分のリクエスト。
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Client はOpenAI Chat Completions APIのクライアント。
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(apiKey, model string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// chatMessage はChat Completions APIのメッセージ。
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequestBody はChat Completions APIのリクエストボディ。
type completionRequestBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

// completionResponseBody はChat Completions APIのレスポンスボディ。
type completionResponseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete はチャット補完を1回実行し、生成テキストを返す。
// 生成結果が空の場合はエラーを返す。
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := completionRequestBody{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var decoded completionResponseBody
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := string(respBody)
		if decoded.Error != nil {
			message = decoded.Error.Message
		}
		c.logger.Warn("openai api returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", message),
		)
		return "", fmt.Errorf("openai api error: status=%d message=%s", resp.StatusCode, message)
	}

	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai api returned no choices")
	}

	text := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai api returned empty completion")
	}

	return text, nil
}
