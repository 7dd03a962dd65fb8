// Package chat holds a practice conversation with the AI coach.
package chat

import (
	"errors"
	"strings"

	"github.com/ashureev/devenglish/internal/domain"
)

// Greeting opens every conversation.
const Greeting = "Hi there! I'm your English coding partner. Let's practice B1-level English. " +
	"Can you explain a simple Python script or HTML layout you've worked on recently?"

// MinFeedbackMessages is the number of messages needed before feedback is offered.
const MinFeedbackMessages = 3

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrBusy           = errors.New("waiting for a reply")
	ErrTooFewMessages = errors.New("not enough messages for feedback")
	ErrNotBusy        = errors.New("no request in flight")
)

// Machine is the conversation state. It performs no I/O and is not safe for
// concurrent use.
type Machine struct {
	messages []domain.ChatMessage
	busy     bool
	feedback string
}

// NewMachine returns a conversation seeded with the greeting.
func NewMachine() *Machine {
	return &Machine{
		messages: []domain.ChatMessage{{Role: domain.RoleAssistant, Content: Greeting}},
	}
}

func (m *Machine) Busy() bool       { return m.busy }
func (m *Machine) Feedback() string { return m.feedback }

// Messages returns a copy of the history.
func (m *Machine) Messages() []domain.ChatMessage {
	return append([]domain.ChatMessage(nil), m.messages...)
}

// CanRequestFeedback reports whether BeginFeedback would succeed.
func (m *Machine) CanRequestFeedback() bool {
	return !m.busy && len(m.messages) >= MinFeedbackMessages
}

// BeginSend appends the user message and returns the history to send.
func (m *Machine) BeginSend(text string) ([]domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if m.busy {
		return nil, ErrBusy
	}
	m.messages = append(m.messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	m.busy = true
	return m.Messages(), nil
}

// CompleteSend appends the assistant reply.
func (m *Machine) CompleteSend(reply string) error {
	if !m.busy {
		return ErrNotBusy
	}
	m.messages = append(m.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	m.busy = false
	return nil
}

// BeginFeedback marks a feedback request in flight and returns the history to evaluate.
func (m *Machine) BeginFeedback() ([]domain.ChatMessage, error) {
	if m.busy {
		return nil, ErrBusy
	}
	if len(m.messages) < MinFeedbackMessages {
		return nil, ErrTooFewMessages
	}
	m.busy = true
	return m.Messages(), nil
}

// CompleteFeedback stores the feedback panel text. It is not added to the history.
func (m *Machine) CompleteFeedback(text string) error {
	if !m.busy {
		return ErrNotBusy
	}
	m.feedback = text
	m.busy = false
	return nil
}

// DismissFeedback clears the feedback panel.
func (m *Machine) DismissFeedback() {
	m.feedback = ""
}
