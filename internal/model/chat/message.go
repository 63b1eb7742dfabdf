package chat

import "time"

// Stored sender tags. The completion provider speaks in roles, not senders;
// RoleFor translates at the boundary.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Completion roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single appended turn. ReplyTo is a weak reference to an
// earlier message in the same session; it may dangle and is never resolved
// eagerly.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	ReplyTo   string    `json:"replyTo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Turn is a role-tagged message as the completion provider expects it.
type Turn struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// RoleFor maps a stored sender tag to a completion role.
func RoleFor(sender string) string {
	if sender == SenderBot {
		return RoleAssistant
	}
	return RoleUser
}

// AsTurn converts a stored message into a role-tagged turn.
func (m Message) AsTurn() Turn {
	return Turn{
		ID:      m.ID,
		Role:    RoleFor(m.Sender),
		Content: m.Content,
		ReplyTo: m.ReplyTo,
	}
}
