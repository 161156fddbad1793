package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAPIURL  = "https://api.openai.com/v1/chat/completions"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 15 * time.Second

	temperature      = 0.7
	maxResponseBytes = 1 << 20
)

// Inferrer sends one prompt pair to the model and returns its raw text.
type Inferrer interface {
	Infer(ctx context.Context, apiKey string, prompt PromptPair, maxTokens int) (string, error)
}

// ClientConfig configures the chat completion endpoint.
type ClientConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint. It holds no
// credentials; the caller supplies the user's key on every call.
type Client struct {
	httpClient *http.Client
	url        string
	model      string
	logger     *zap.Logger
}

// NewClient creates a new Client instance
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        cfg.URL,
		model:      cfg.Model,
		logger:     logger,
	}
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// ChatResponse represents the subset of the completion envelope we read
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Infer performs a single completion call. No retries. The key is sent as given;
// Pipeline rejects a blank one before a prompt is built.
func (c *Client) Infer(ctx context.Context, apiKey string, prompt PromptPair, maxTokens int) (string, error) {
	body, err := json.Marshal(ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.Instructions},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("inference request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := providerMessage(raw)
		c.logger.Warn("inference provider returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
			zap.Duration("elapsed", time.Since(start)),
		)
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	var chat ChatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: "undecodable completion envelope", Err: err}
	}
	if len(chat.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := chat.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("inference completed",
		zap.Int("max_tokens", maxTokens),
		zap.Int("response_chars", len(content)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return content, nil
}

// providerMessage extracts the provider's error message, falling back to a bounded
// slice of the body.
func providerMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = strings.ToValidUTF8(msg[:200], "")
	}
	return msg
}
