package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/knakagawa/parody-engine/pkg/session"
)

// SessionStore defines the interface for session persistence between turns.
type SessionStore interface {
	// Ping tests the store connection
	Ping(ctx context.Context) error

	// SaveSession saves a session keyed by its ID
	SaveSession(ctx context.Context, s *session.Session) error

	// LoadSession retrieves a session by ID.
	// Returns nil if the session doesn't exist.
	LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error)

	// DeleteSession removes a session by ID
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Close closes the store connection
	Close() error
}

// Archive accepts finalized scene text. The sink enforces no schema beyond
// attributing the blob to a session.
type Archive interface {
	// Save appends a finalized scene
	Save(ctx context.Context, sessionID uuid.UUID, content string) error

	// Recent returns up to n archived scenes, newest first
	Recent(ctx context.Context, n int) ([]string, error)

	// Close closes the archive
	Close() error
}
