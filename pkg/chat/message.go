// Package chat implements the client side of an astra conversation: the
// message history, the delta payload decoding, and the Controller that drives
// one streamed request/response exchange against the relay and renders it on
// a Surface.
package chat

import (
	"errors"
	"fmt"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single chat message as exchanged with the relay.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ErrSystemNotLeading is returned when a system message would not be the
// first entry of a history.
var ErrSystemNotLeading = errors.New("system message must be the first and only system entry")

// History is the ordered, append-only conversation record sent with every
// request. It holds at most one system message, always at index 0.
//
// History is not safe for concurrent use; the Controller guards its own.
type History struct {
	messages []Message
}

// NewHistory returns a History, seeded with a leading system message when
// systemPrompt is non-empty.
func NewHistory(systemPrompt string) *History {
	h := &History{}
	if systemPrompt != "" {
		h.messages = append(h.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return h
}

// Append adds m to the end of the history.
func (h *History) Append(m Message) error {
	if !m.Role.Valid() {
		return fmt.Errorf("unknown role %q", m.Role)
	}
	if m.Role == RoleSystem && len(h.messages) > 0 {
		return ErrSystemNotLeading
	}
	h.messages = append(h.messages, m)
	return nil
}

// Messages returns a copy of the history in chronological order.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages, including a leading system message.
func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the most recent message.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Reset drops every turn of the conversation. A leading system message is
// kept.
func (h *History) Reset() {
	if len(h.messages) > 0 && h.messages[0].Role == RoleSystem {
		h.messages = h.messages[:1]
		return
	}
	h.messages = nil
}
