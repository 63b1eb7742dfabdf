package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/personachat/backend/internal/model/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	private_id  TEXT PRIMARY KEY,
	personality TEXT NOT NULL,
	traits      TEXT NOT NULL,
	is_control  INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	session_id TEXT NOT NULL REFERENCES sessions(private_id),
	content    TEXT NOT NULL,
	sender     TEXT NOT NULL,
	reply_to   TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session_created
	ON messages(session_id, created_at);
`

// SQLite implements Store on a single-file database via the pure-Go
// modernc.org driver. One mutex serializes writers; SQLite itself allows
// only one writer at a time and the serialization also narrows (without
// closing) the count-then-insert window during session creation.
type SQLite struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Close releases the handle; callers own the lifecycle.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Create(ctx context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	traits, err := json.Marshal(session.Traits)
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE private_id = ?`, session.PrivateID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateSession
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (private_id, personality, traits, is_control, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.PrivateID, session.Personality, string(traits),
		boolToInt(session.IsControl), session.CreatedAt.UnixMilli(),
	)
	if err != nil {
		s.logger.Error("session insert failed", zap.String("privateID", session.PrivateID), zap.Error(err))
		return fmt.Errorf("insert session: %w", err)
	}

	s.logger.Debug("session created",
		zap.String("privateID", session.PrivateID),
		zap.Bool("isControl", session.IsControl))
	return nil
}

func (s *SQLite) FindByID(ctx context.Context, privateID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		session   chat.Session
		traits    string
		isControl int
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT private_id, personality, traits, is_control, created_at
		 FROM sessions WHERE private_id = ?`, privateID,
	).Scan(&session.PrivateID, &session.Personality, &traits, &isControl, &createdAt)
	if err == sql.ErrNoRows {
		return chat.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("find session: %w", err)
	}

	if err := json.Unmarshal([]byte(traits), &session.Traits); err != nil {
		return chat.Session{}, fmt.Errorf("decode traits: %w", err)
	}
	session.IsControl = isControl != 0
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	return session, nil
}

func (s *SQLite) AppendMessage(ctx context.Context, privateID, content, sender, replyTo string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Message{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE private_id = ?`, privateID,
	).Scan(&exists); err != nil {
		return chat.Message{}, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return chat.Message{}, ErrSessionNotFound
	}

	now := time.Now().UTC().UnixMilli()
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM messages WHERE session_id = ?`, privateID,
	).Scan(&last); err != nil {
		return chat.Message{}, fmt.Errorf("read last timestamp: %w", err)
	}
	// Strictly increasing per session, so a strictly-less pagination cursor
	// never skips or repeats a message.
	if last.Valid && now <= last.Int64 {
		now = last.Int64 + 1
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: privateID,
		Sender:    sender,
		Content:   content,
		ReplyTo:   replyTo,
		CreatedAt: time.UnixMilli(now).UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, content, sender, reply_to, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID, privateID, content, sender, nullable(replyTo), now,
	)
	if err != nil {
		s.logger.Error("message insert failed", zap.String("privateID", privateID), zap.Error(err))
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return chat.Message{}, fmt.Errorf("commit append: %w", err)
	}
	return message, nil
}

func (s *SQLite) RecentHistory(ctx context.Context, privateID string, limit int, before *time.Time) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE private_id = ?`, privateID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return nil, ErrSessionNotFound
	}

	var (
		rows *sql.Rows
		err  error
	)
	if before != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, content, sender, reply_to, created_at
			 FROM messages WHERE session_id = ? AND created_at < ?
			 ORDER BY seq DESC LIMIT ?`,
			privateID, before.UnixMilli(), limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, content, sender, reply_to, created_at
			 FROM messages WHERE session_id = ?
			 ORDER BY seq DESC LIMIT ?`,
			privateID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var window []chat.Message
	for rows.Next() {
		var (
			m         chat.Message
			replyTo   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.Content, &m.Sender, &replyTo, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SessionID = privateID
		m.ReplyTo = replyTo.String
		m.CreatedAt = time.UnixMilli(createdAt).UTC()
		window = append(window, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	// Rows arrive newest first; the contract is chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window, nil
}

func (s *SQLite) Counts(ctx context.Context) (total, control int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_control), 0) FROM sessions`,
	).Scan(&total, &control)
	if err != nil {
		return 0, 0, fmt.Errorf("count sessions: %w", err)
	}
	return total, control, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
