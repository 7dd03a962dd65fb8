package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/devenglish/internal/domain"
)

// ErrSessionClosed is returned for operations on a torn down session.
var ErrSessionClosed = errors.New("chat session closed")

// Coach produces replies and feedback. Implementations handle their own
// failures and always return text.
type Coach interface {
	ChatReply(ctx context.Context, history []domain.ChatMessage) string
	ConversationFeedback(ctx context.Context, history []domain.ChatMessage) string
}

// View is the client-facing snapshot of a conversation.
type View struct {
	SessionID   string               `json:"session_id"`
	Messages    []domain.ChatMessage `json:"messages"`
	Busy        bool                 `json:"busy"`
	Feedback    string               `json:"feedback,omitempty"`
	CanFeedback bool                 `json:"can_feedback"`
}

// Session runs a Machine against a Coach. Coach calls run without the lock.
type Session struct {
	id    string
	owner string
	coach Coach

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	machine    *Machine
	closed     bool
	lastActive time.Time
	watcher    func(View)
	watcherID  int
}

// NewSession creates a conversation seeded with the greeting.
func NewSession(id, owner string, coach Coach) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         id,
		owner:      owner,
		coach:      coach,
		ctx:        ctx,
		cancel:     cancel,
		machine:    NewMachine(),
		lastActive: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the learner the session belongs to.
func (s *Session) Owner() string { return s.owner }

// Watch registers fn to receive the view after every transition, replacing
// any previous watcher. fn is called without the session lock held. The
// returned stop function removes fn if it is still the current watcher.
func (s *Session) Watch(fn func(View)) (stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherID++
	id := s.watcherID
	s.watcher = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.watcherID == id {
			s.watcher = nil
		}
	}
}

// Send appends text, waits for the coach and returns the updated view.
// A reply that arrives after Close is dropped.
func (s *Session) Send(ctx context.Context, text string) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	s.lastActive = time.Now()
	history, err := s.machine.BeginSend(text)
	view, watcher := s.viewLocked(), s.watcher
	s.mu.Unlock()
	if err != nil {
		return view, err
	}
	notify(watcher, view)

	callCtx, cancel := s.mergedContext(ctx)
	reply := s.coach.ChatReply(callCtx, history)
	cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	if err := s.machine.CompleteSend(reply); err != nil {
		slog.Warn("Dropping chat reply", "session_id", s.id, "error", err)
	}
	view, watcher = s.viewLocked(), s.watcher
	s.mu.Unlock()

	notify(watcher, view)
	return view, nil
}

// RequestFeedback asks the coach to evaluate the conversation so far.
func (s *Session) RequestFeedback(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	s.lastActive = time.Now()
	history, err := s.machine.BeginFeedback()
	view, watcher := s.viewLocked(), s.watcher
	s.mu.Unlock()
	if err != nil {
		return view, err
	}
	notify(watcher, view)

	callCtx, cancel := s.mergedContext(ctx)
	text := s.coach.ConversationFeedback(callCtx, history)
	cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	if err := s.machine.CompleteFeedback(text); err != nil {
		slog.Warn("Dropping feedback", "session_id", s.id, "error", err)
	}
	view, watcher = s.viewLocked(), s.watcher
	s.mu.Unlock()

	notify(watcher, view)
	return view, nil
}

// DismissFeedback clears the feedback panel.
func (s *Session) DismissFeedback() (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	s.lastActive = time.Now()
	s.machine.DismissFeedback()
	view, watcher := s.viewLocked(), s.watcher
	s.mu.Unlock()

	notify(watcher, view)
	return view, nil
}

// View returns the current snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// LastActive returns the time of the last user action.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the session down. In-flight coach calls are cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.watcher = nil
	s.cancel()
	slog.Info("Chat session closed", "session_id", s.id)
}

func (s *Session) viewLocked() View {
	return View{
		SessionID:   s.id,
		Messages:    s.machine.Messages(),
		Busy:        s.machine.Busy(),
		Feedback:    s.machine.Feedback(),
		CanFeedback: s.machine.CanRequestFeedback(),
	}
}

// mergedContext is cancelled when either the caller's context or the session ends.
func (s *Session) mergedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func notify(fn func(View), v View) {
	if fn != nil {
		fn(v)
	}
}
