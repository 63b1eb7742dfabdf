// Package store persists sessions and their append-only message lists.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/personachat/backend/internal/model/chat"
)

var (
	ErrDuplicateSession = errors.New("session already exists")
	ErrSessionNotFound  = errors.New("session not found")
)

// DefaultHistoryLimit applies when a caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// Store is the persistence contract the orchestrator consumes. FindByID
// reports a missing session through ErrSessionNotFound, never a panic;
// callers check.
type Store interface {
	// Create persists a new session with an empty message list. Fails with
	// ErrDuplicateSession when the privateID is already taken.
	Create(ctx context.Context, session chat.Session) error

	// FindByID returns the session for privateID or ErrSessionNotFound.
	FindByID(ctx context.Context, privateID string) (chat.Session, error)

	// AppendMessage appends one message with a server-assigned timestamp that
	// strictly increases within the session. replyTo may name an earlier message
	// in the same session; it is stored as-is and never validated.
	AppendMessage(ctx context.Context, privateID, content, sender, replyTo string) (chat.Message, error)

	// RecentHistory returns up to limit messages in chronological order.
	// With before == nil it is the tail window: the most recent limit
	// messages, oldest of the window first. With before set it pages
	// backward: messages strictly older than before. Chaining a tail call
	// with paginated calls keyed on the oldest returned timestamp walks the
	// full history with no gap and no duplicate.
	RecentHistory(ctx context.Context, privateID string, limit int, before *time.Time) ([]chat.Message, error)

	// Counts returns the total number of sessions and how many of them are
	// control, from one consistent read.
	Counts(ctx context.Context) (total, control int64, err error)

	Close() error
}
