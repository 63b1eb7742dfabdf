package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/personachat/backend/internal/model/chat"
)

// Memory implements Store with mutex-guarded maps. It backs tests and
// storeless development runs; production uses SQLite.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

func (s *Memory) Create(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.PrivateID]; ok {
		return ErrDuplicateSession
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	s.sessions[session.PrivateID] = session
	s.messages[session.PrivateID] = make([]chat.Message, 0, 16)
	return nil
}

func (s *Memory) FindByID(_ context.Context, privateID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[privateID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *Memory) AppendMessage(_ context.Context, privateID, content, sender, replyTo string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[privateID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	// Strictly increasing per session, so a strictly-less pagination cursor
	// never skips or repeats a message.
	now := time.Now().UTC()
	if existing := s.messages[privateID]; len(existing) > 0 {
		if last := existing[len(existing)-1].CreatedAt; !now.After(last) {
			now = last.Add(time.Millisecond)
		}
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: privateID,
		Sender:    sender,
		Content:   content,
		ReplyTo:   replyTo,
		CreatedAt: now,
	}
	s.messages[privateID] = append(s.messages[privateID], message)
	return message, nil
}

func (s *Memory) RecentHistory(_ context.Context, privateID string, limit int, before *time.Time) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[privateID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	eligible := messages
	if before != nil {
		cut := len(messages)
		for cut > 0 && !messages[cut-1].CreatedAt.Before(*before) {
			cut--
		}
		eligible = messages[:cut]
	}

	start := 0
	if len(eligible) > limit {
		start = len(eligible) - limit
	}

	window := make([]chat.Message, len(eligible)-start)
	copy(window, eligible[start:])
	return window, nil
}

func (s *Memory) Counts(_ context.Context) (total, control int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		total++
		if session.IsControl {
			control++
		}
	}
	return total, control, nil
}

func (s *Memory) Close() error { return nil }
