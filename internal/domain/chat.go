package domain

import "time"

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one transcript entry. Text is the plain user input or the
// raw model reply; HTML is what the widget inserts into the page.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the state owned by one chat widget instance: its append-only
// transcript and whether a turn is in flight.
type Session struct {
	ID       string
	Messages []ChatMessage
	Sending  bool
}

// InputEnabled reports whether the widget accepts a new submission.
func (s Session) InputEnabled() bool {
	return !s.Sending
}

// ChatRequest is the immutable input of a single generation call.
type ChatRequest struct {
	Prompt            string
	SystemInstruction string
	Temperature       float64
}
