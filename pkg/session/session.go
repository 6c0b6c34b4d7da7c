package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase tracks where a session is in its interaction loop.
type Phase string

const (
	PhaseAwaitingInput Phase = "awaiting_input"
	PhaseGenerating    Phase = "generating"
	PhaseDisplaying    Phase = "displaying"
	PhaseEnded         Phase = "ended"
)

// GenerationConfig holds the tunable knobs of a session. It is set at
// construction and may be changed between requests, never during one.
type GenerationConfig struct {
	PatternStrictness float64 `json:"pattern_strictness"` // [0,1]
	TagWeight         float64 `json:"tag_weight"`         // [0.1,3.0]
	MaxTags           int     `json:"max_tags"`           // [1,5]
	UseExamples       bool    `json:"use_examples"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	TopP              float64 `json:"top_p"`
}

// DefaultConfig returns the standard generation settings.
func DefaultConfig() GenerationConfig {
	return GenerationConfig{
		PatternStrictness: 0.6,
		TagWeight:         1.0,
		MaxTags:           3,
		UseExamples:       true,
		Temperature:       1.0,
		MaxTokens:         4000,
		TopP:              0.9,
	}
}

// Validate checks that every knob is within its allowed range.
func (c GenerationConfig) Validate() error {
	if c.PatternStrictness < 0 || c.PatternStrictness > 1 {
		return fmt.Errorf("pattern_strictness must be in [0,1], got %v", c.PatternStrictness)
	}
	if c.TagWeight < 0.1 || c.TagWeight > 3.0 {
		return fmt.Errorf("tag_weight must be in [0.1,3.0], got %v", c.TagWeight)
	}
	if c.MaxTags < 1 || c.MaxTags > 5 {
		return fmt.Errorf("max_tags must be in [1,5], got %d", c.MaxTags)
	}
	if c.Temperature <= 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in (0,2], got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("top_p must be in (0,1], got %v", c.TopP)
	}
	return nil
}

// Session is the state of one parody generation session. It is owned by a
// single interaction thread; persistence happens between turns.
type Session struct {
	ID           uuid.UUID        `json:"id"`
	Setting      string           `json:"setting"`
	Characters   []string         `json:"characters"`
	Config       GenerationConfig `json:"config"`
	ContextLines []string         `json:"context_lines,omitempty"`
	CurrentScene string           `json:"current_scene,omitempty"`
	Phase        Phase            `json:"phase"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// New creates a session in the awaiting-input phase. Character names are
// normalized to upper case, matching the pattern document keys.
func New(setting string, characters []string, cfg GenerationConfig) (*Session, error) {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return nil, fmt.Errorf("setting cannot be empty")
	}

	normalized := make([]string, 0, len(characters))
	for _, c := range characters {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			normalized = append(normalized, c)
		}
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("at least one character is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation config: %w", err)
	}

	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		Setting:    setting,
		Characters: normalized,
		Config:     cfg,
		Phase:      PhaseAwaitingInput,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AppendContext adds a line to the session's context history.
func (s *Session) AppendContext(line string) {
	line = strings.TrimSpace(line)
	if line != "" {
		s.ContextLines = append(s.ContextLines, line)
	}
}

// SetScene records a freshly generated scene and moves to displaying.
func (s *Session) SetScene(scene string) {
	s.CurrentScene = scene
	s.Phase = PhaseDisplaying
	s.UpdatedAt = time.Now()
}

// CanRefine reports whether the session has a scene to refine.
func (s *Session) CanRefine() bool {
	return s.Phase == PhaseDisplaying && s.CurrentScene != ""
}
