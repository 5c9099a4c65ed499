// Package generate produces SEO texts, revisions, and translations through
// an OpenAI-compatible chat-completions API.
package generate

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

	"github.com/nborup/skribent/internal/apperr"
)

// Client is a thin HTTP client for the chat-completions endpoint. The API
// key can be overridden per call, since each profile may carry its own.
type Client struct {
	baseURL string
	model   string
	key     string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a chat-completions client against baseURL using model.
// key is the default bearer token; timeout bounds each request.
func NewClient(baseURL, model, key string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		key:     key,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ChatMessage is one turn of a chat-completions conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Chat sends messages and returns the first choice's content. apiKey
// overrides the client default when non-empty.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage, temperature float32, apiKey string) (string, error) {
	if apiKey == "" {
		apiKey = c.key
	}
	if apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", apperr.ErrInvalid)
	}

	reqJSON, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("generate: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: chat request: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("chat completion error",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("%w: chat API returned status %d", apperr.ErrUpstream, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("%w: decode chat response: %v", apperr.ErrUpstream, err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrUpstream, cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("%w: chat response has no choices", apperr.ErrUpstream)
	}

	c.logger.Debug("chat completion received",
		slog.Duration("duration", time.Since(start)),
		slog.Int("tokens", cr.Usage.TotalTokens),
		slog.String("finish_reason", cr.Choices[0].FinishReason))

	return cr.Choices[0].Message.Content, nil
}
