package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/session"
)

const (
	deepseekBaseURL = "https://api.deepseek.com"

	DefaultDeepSeekModel = "deepseek-chat"
)

// DeepSeekService implements LLMService for the DeepSeek chat completions
// API (OpenAI-compatible wire format).
type DeepSeekService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
}

// DeepSeekChatRequest represents the request structure for chat completions.
type DeepSeekChatRequest struct {
	Model       string             `json:"model"`
	Messages    []chat.ChatMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	TopP        float64            `json:"top_p,omitempty"`
	Stream      bool               `json:"stream"`
}

// DeepSeekChatChoice represents a single choice in the response.
type DeepSeekChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// DeepSeekChatResponse represents the response structure for chat completions.
type DeepSeekChatResponse struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []DeepSeekChatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewDeepSeekService creates a new DeepSeek service.
func NewDeepSeekService(apiKey string, modelName string) *DeepSeekService {
	if modelName == "" {
		modelName = DefaultDeepSeekModel
	}
	return &DeepSeekService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   deepseekBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// GenerateScene sends a single synchronous chat completion request with the
// session's generation parameters.
func (d *DeepSeekService) GenerateScene(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error) {
	deepseekReq := DeepSeekChatRequest{
		Model:       d.modelName,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopP:        cfg.TopP,
		Stream:      false,
	}

	reqBody, err := json.Marshal(deepseekReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, body)
	}

	var deepseekResp DeepSeekChatResponse
	if err := json.Unmarshal(body, &deepseekResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if deepseekResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedResponse, deepseekResp.Error.Message)
	}

	if len(deepseekResp.Choices) == 0 || deepseekResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	return deepseekResp.Choices[0].Message.Content, nil
}
