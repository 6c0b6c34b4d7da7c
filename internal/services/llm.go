package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/session"
)

// Generation failure kinds. Callers distinguish them with errors.Is; all of
// them surface to the user as "generation failed, try again".
var (
	// ErrNetwork covers transport failures and upstream outages.
	ErrNetwork = errors.New("network failure")
	// ErrAuth covers missing or rejected credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited covers throttling responses.
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformedResponse covers responses that cannot be parsed into text.
	ErrMalformedResponse = errors.New("malformed response")
)

// LLMService defines the interface for the remote generation API. No retry
// logic; the caller may re-invoke on failure.
type LLMService interface {
	// GenerateScene sends the assembled prompt messages and returns the
	// generated scene text.
	GenerateScene(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error)
}

// statusError maps a non-OK HTTP status to the failure taxonomy.
func statusError(status int, body []byte) error {
	switch status {
	case 401, 403:
		return fmt.Errorf("%w: status %d: %s", ErrAuth, status, body)
	case 429:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, status, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrNetwork, status, body)
	}
}
