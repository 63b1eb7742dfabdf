package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/personachat/backend/internal/config"
	"github.com/personachat/backend/internal/model/chat"
)

// ErrUpstream marks completion-provider failures, timeouts included. The
// caller has already persisted the user's turn by the time this surfaces, so
// an upstream failure never loses input; it only means no assistant reply.
var ErrUpstream = errors.New("completion provider failure")

// Service sends one structured conversation to the model per call and
// returns the reply. It holds no conversation state; the orchestrator owns
// persistence on both sides of the call.
type Service struct {
	timeout time.Duration
	logger  *zap.Logger
	chain   compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the prompt template and compiled chain around the
// configured chat model.
func NewService(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		timeout: cfg.Timeout,
		logger:  logger,
		chain:   runnable,
	}, nil
}

// Generate sends the system prompt, the prior turns oldest-first, and the
// new user message, and returns the assistant reply text. Any provider
// failure, timeout included, comes back wrapped in ErrUpstream.
func (s *Service) Generate(ctx context.Context, systemPrompt string, history []chat.Turn, userMessage string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	input := map[string]any{
		"system":  systemPrompt,
		"history": historyMessages(history),
		"query":   userMessage,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		s.logger.Warn("completion call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.logger.Debug("completion generated", zap.Int("replyLength", len(response.Content)))
	return response.Content, nil
}

func historyMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
