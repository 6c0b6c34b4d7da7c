package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/knakagawa/parody-engine/pkg/session"
)

// MockSessionStore is an in-memory SessionStore for testing.
type MockSessionStore struct {
	sessions map[uuid.UUID]*session.Session
	PingErr  error
	mu       sync.Mutex
}

var _ SessionStore = (*MockSessionStore)(nil)

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[uuid.UUID]*session.Session),
	}
}

func (m *MockSessionStore) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockSessionStore) SaveSession(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *MockSessionStore) LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockSessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionStore) Close() error { return nil }

// MockArchive is an in-memory Archive for testing.
type MockArchive struct {
	Scenes  []string
	SaveErr error
	mu      sync.Mutex
}

var _ Archive = (*MockArchive)(nil)

func NewMockArchive() *MockArchive {
	return &MockArchive{}
}

func (m *MockArchive) Save(ctx context.Context, sessionID uuid.UUID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Scenes = append(m.Scenes, content)
	return nil
}

func (m *MockArchive) Recent(ctx context.Context, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for i := len(m.Scenes) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.Scenes[i])
	}
	return out, nil
}

func (m *MockArchive) Close() error { return nil }
