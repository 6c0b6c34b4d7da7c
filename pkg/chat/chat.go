package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/knakagawa/parody-engine/pkg/session"
)

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant"
	ChatRoleSystem = "system"
)

// ChatMessage is a single message in a conversation with the LLM.
// The role/content shape is shared by every provider wire format we speak.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ScenarioRequest creates a new parody session and generates its first scene.
// Config overrides the default generation settings when present.
type ScenarioRequest struct {
	Setting    string                    `json:"setting"`
	Characters []string                  `json:"characters"`
	Context    string                    `json:"context,omitempty"`
	Config     *session.GenerationConfig `json:"config,omitempty"`
}

// RefineRequest asks for a revision of the current scene of an existing session.
type RefineRequest struct {
	Notes string `json:"notes"`
}

// ScenarioResponse is returned by the scenario endpoints.
type ScenarioResponse struct {
	SessionID uuid.UUID `json:"session_id,omitempty"`
	Scene     string    `json:"scene,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func (sr *ScenarioRequest) Validate() error {
	if strings.TrimSpace(sr.Setting) == "" {
		return fmt.Errorf("setting cannot be empty")
	}
	if len(sr.Characters) == 0 {
		return fmt.Errorf("at least one character is required")
	}
	if sr.Config != nil {
		if err := sr.Config.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

func (rr *RefineRequest) Validate() error {
	if strings.TrimSpace(rr.Notes) == "" {
		return fmt.Errorf("refinement notes cannot be empty")
	}
	return nil
}
