package chat

import "time"

// Session is one participant's conversation, keyed by a caller-held opaque
// privateID. Possession of the ID is the only access control. A session is
// immutable after creation except for message appends; it is never moved
// between the control and treatment arms.
type Session struct {
	PrivateID   string    `json:"privateID"`
	Personality string    `json:"-"`
	Traits      []string  `json:"traits"`
	IsControl   bool      `json:"isControl"`
	CreatedAt   time.Time `json:"createdAt"`
}
