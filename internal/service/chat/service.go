// Package chat orchestrates session creation, message exchange, and history
// retrieval over the store, the balancer, and the completion gateway.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/personachat/backend/internal/balancer"
	"github.com/personachat/backend/internal/model/chat"
	"github.com/personachat/backend/internal/personality"
	"github.com/personachat/backend/internal/store"
)

// HistoryWindow is how many prior turns accompany each completion call.
const HistoryWindow = 20

var (
	ErrPrivateIDRequired = errors.New("privateID is required")
	ErrMessageRequired   = errors.New("userMessage is required")
	ErrNoGateway         = errors.New("completion provider unavailable")
)

// CompletionGateway sends one conversation to the model and returns the
// reply. Implemented by service/ai; faked in tests.
type CompletionGateway interface {
	Generate(ctx context.Context, systemPrompt string, history []chat.Turn, userMessage string) (string, error)
}

// Service is the orchestrator. Dependencies are constructed at startup and
// injected; the service holds no ambient state of its own.
type Service struct {
	store   store.Store
	gateway CompletionGateway
	logger  *zap.Logger
}

// NewService wires the orchestrator. gateway may be nil when the provider is
// unconfigured; SendMessage then fails without touching the model, but the
// user's turn is still persisted.
func NewService(st store.Store, gateway CompletionGateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, gateway: gateway, logger: logger}
}

// CreateSession composes the personality from the questionnaire answers,
// assigns the session to an arm from a fresh count read, and persists it.
// A second call with the same privateID fails with ErrDuplicateSession and
// leaves the first session untouched.
func (s *Service) CreateSession(ctx context.Context, privateID string, answers map[int]string) (chat.Session, error) {
	if privateID == "" {
		return chat.Session{}, ErrPrivateIDRequired
	}

	profile := personality.Compose(answers)

	total, control, err := s.store.Counts(ctx)
	if err != nil {
		return chat.Session{}, fmt.Errorf("read session counts: %w", err)
	}
	assignment := balancer.Decide(total, control)

	text := profile.FinalText
	if assignment.IsControl {
		text = assignment.PersonalityOverride
	}

	session := chat.Session{
		PrivateID:   privateID,
		Personality: text,
		Traits:      profile.TraitIndicators,
		IsControl:   assignment.IsControl,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return chat.Session{}, err
	}

	s.logger.Info("session created",
		zap.String("privateID", privateID),
		zap.Bool("isControl", session.IsControl),
		zap.Int64("totalBefore", total),
		zap.Int64("controlBefore", control))
	return session, nil
}

// SendMessage appends the user's turn, feeds the recent window to the
// gateway, and appends the reply. When the gateway fails the user's turn
// stays persisted and no assistant turn is written; the error is final for
// this attempt, there are no retries.
func (s *Service) SendMessage(ctx context.Context, privateID, text, replyTo string) (chat.Message, error) {
	if privateID == "" {
		return chat.Message{}, ErrPrivateIDRequired
	}
	if text == "" {
		return chat.Message{}, ErrMessageRequired
	}

	session, err := s.store.FindByID(ctx, privateID)
	if err != nil {
		return chat.Message{}, err
	}

	userMessage, err := s.store.AppendMessage(ctx, privateID, text, chat.SenderUser, replyTo)
	if err != nil {
		return chat.Message{}, err
	}

	if s.gateway == nil {
		return chat.Message{}, ErrNoGateway
	}

	history, err := s.recentTurns(ctx, privateID, userMessage.ID)
	if err != nil {
		return chat.Message{}, err
	}

	reply, err := s.gateway.Generate(ctx, session.Personality, history, text)
	if err != nil {
		s.logger.Warn("completion failed, user turn retained",
			zap.String("privateID", privateID), zap.Error(err))
		return chat.Message{}, err
	}

	botMessage, err := s.store.AppendMessage(ctx, privateID, reply, chat.SenderBot, userMessage.ID)
	if err != nil {
		return chat.Message{}, fmt.Errorf("persist assistant reply: %w", err)
	}
	return botMessage, nil
}

// History returns the session and a translated message window. With before
// unset it is the tail window; with before set it pages backward over
// strictly older messages.
func (s *Service) History(ctx context.Context, privateID string, limit int, before *time.Time) (chat.Session, []chat.Turn, error) {
	if privateID == "" {
		return chat.Session{}, nil, ErrPrivateIDRequired
	}

	session, err := s.store.FindByID(ctx, privateID)
	if err != nil {
		return chat.Session{}, nil, err
	}

	messages, err := s.store.RecentHistory(ctx, privateID, limit, before)
	if err != nil {
		return chat.Session{}, nil, err
	}

	turns := make([]chat.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, m.AsTurn())
	}
	return session, turns, nil
}

// recentTurns fetches the completion context window. The user's new turn is
// already persisted, so the tail is read one slot wide and the new turn is
// dropped by ID; it reaches the model through the query slot only.
func (s *Service) recentTurns(ctx context.Context, privateID, excludeID string) ([]chat.Turn, error) {
	messages, err := s.store.RecentHistory(ctx, privateID, HistoryWindow+1, nil)
	if err != nil {
		return nil, fmt.Errorf("load history window: %w", err)
	}

	if n := len(messages); n > 0 && messages[n-1].ID == excludeID {
		messages = messages[:n-1]
	}
	if len(messages) > HistoryWindow {
		messages = messages[len(messages)-HistoryWindow:]
	}

	turns := make([]chat.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, m.AsTurn())
	}
	return turns, nil
}
