// Package session keeps chat transcripts in process memory. It backs the CLI
// and Lambda deployments that run without a state table.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"portfolio-chat/internal/domain"
)

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

// Load returns a copy of the session. Unknown ids yield an empty session.
func (m *MemoryStore) Load(_ context.Context, sessionID string) (domain.Session, error) {
	if err := checkID(sessionID); err != nil {
		return domain.Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return domain.Session{ID: sessionID}, nil
	}
	out := *sess
	out.Messages = append([]domain.ChatMessage(nil), sess.Messages...)
	return out, nil
}

func (m *MemoryStore) BeginTurn(_ context.Context, sessionID string, msg domain.ChatMessage) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = &domain.Session{ID: sessionID}
		m.sessions[sessionID] = sess
	}
	if sess.Sending {
		return domain.ErrTurnInFlight
	}
	sess.Messages = append(sess.Messages, msg)
	sess.Sending = true
	return nil
}

func (m *MemoryStore) SettleTurn(_ context.Context, sessionID string, msg domain.ChatMessage) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return errors.New("session: settle on unknown session")
	}
	sess.Messages = append(sess.Messages, msg)
	sess.Sending = false
	return nil
}

func (m *MemoryStore) ReleaseTurn(_ context.Context, sessionID string) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[sessionID]; ok {
		sess.Sending = false
	}
	return nil
}

func checkID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session: id must not be empty")
	}
	return nil
}
