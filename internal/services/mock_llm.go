package services

import (
	"context"
	"sync"

	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/session"
)

// MockLLMService is a mock implementation of LLMService for testing.
type MockLLMService struct {
	GenerateSceneFunc func(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error)

	// Track calls for testing
	GenerateSceneCalls []GenerateSceneCall

	mu sync.Mutex // protects all fields above
}

type GenerateSceneCall struct {
	Messages []chat.ChatMessage
	Config   session.GenerationConfig
}

// NewMockLLMService creates a new mock LLM service.
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		GenerateSceneCalls: make([]GenerateSceneCall, 0),
	}
}

// GenerateScene mocks scene generation. Default behavior returns a fixed
// scene.
func (m *MockLLMService) GenerateScene(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateSceneCalls = append(m.GenerateSceneCalls, GenerateSceneCall{Messages: messages, Config: cfg})

	if m.GenerateSceneFunc != nil {
		return m.GenerateSceneFunc(ctx, messages, cfg)
	}
	return "MOCK: A scene unfolds.\nEND SCENE", nil
}

// CallCount returns how many generations were requested.
func (m *MockLLMService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateSceneCalls)
}
