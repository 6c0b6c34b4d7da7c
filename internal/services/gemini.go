package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/session"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiService implements LLMService using the Gemini API via the genai SDK.
type GeminiService struct {
	client    *genai.Client
	modelName string
}

// NewGeminiService creates a Gemini-backed service.
func NewGeminiService(ctx context.Context, apiKey string, modelName string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
	}, nil
}

// GenerateScene sends a single synchronous generation request with the
// session's generation parameters. System messages become the system
// instruction; user and assistant messages become the content history.
func (g *GeminiService) GenerateScene(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error) {
	var systemParts []string
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case chat.ChatRoleSystem:
			systemParts = append(systemParts, msg.Content)
		case chat.ChatRoleAgent:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	temperature := float32(cfg.Temperature)
	topP := float32(cfg.TopP)
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	if len(systemParts) > 0 {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, genCfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", statusError(apiErr.Code, []byte(apiErr.Message))
		}
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	text := extractGeminiText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: no text content in response", ErrMalformedResponse)
	}
	return text, nil
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}
