package quiz

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/devenglish/internal/domain"
)

// DefaultRevealDelay is how long a revealed answer stays on screen.
const DefaultRevealDelay = 1500 * time.Millisecond

// ErrSessionClosed is returned for operations on a torn down session.
var ErrSessionClosed = errors.New("quiz session closed")

// ContentSource produces lesson content and the closing summary.
type ContentSource interface {
	LessonContent(ctx context.Context, day int, topic string) (*domain.LessonContent, error)
	PerformanceSummary(ctx context.Context, score, total int, content *domain.LessonContent) string
}

// AfterFunc schedules f after d and returns a stop function.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options configures a Session.
type Options struct {
	// Owner is the learner the session belongs to.
	Owner       string
	RevealDelay time.Duration
	AfterFunc   AfterFunc
}

// Session runs a Machine against a ContentSource. All machine access
// happens under mu; provider calls run without it.
type Session struct {
	id          string
	owner       string
	lesson      domain.Lesson
	src         ContentSource
	revealDelay time.Duration
	afterFunc   AfterFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	machine    *Machine
	closed     bool
	lastActive time.Time
	stopReveal func() bool
	subs       map[int]chan View
	nextSubID  int
}

// NewSession creates a session for lesson. Call Start to begin fetching content.
func NewSession(id string, lesson domain.Lesson, src ContentSource, opts Options) *Session {
	if opts.RevealDelay <= 0 {
		opts.RevealDelay = DefaultRevealDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = timeAfterFunc
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:          id,
		owner:       opts.Owner,
		lesson:      lesson,
		src:         src,
		revealDelay: opts.RevealDelay,
		afterFunc:   opts.AfterFunc,
		ctx:         ctx,
		cancel:      cancel,
		machine:     NewMachine(lesson.ID),
		lastActive:  time.Now(),
		subs:        make(map[int]chan View),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the learner the session belongs to.
func (s *Session) Owner() string { return s.owner }

// Lesson returns the lesson being studied.
func (s *Session) Lesson() domain.Lesson { return s.lesson }

// Start launches the content fetch.
func (s *Session) Start() {
	go s.fetchContent()
}

func (s *Session) fetchContent() {
	content, err := s.src.LessonContent(s.ctx, s.lesson.Day, s.lesson.Topic)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if loadErr := s.machine.Load(content, err); loadErr != nil {
		slog.Warn("Discarding lesson content", "session_id", s.id, "error", loadErr)
		return
	}
	if f, ok := s.machine.State().(Failed); ok {
		slog.Warn("Quiz session failed to load", "session_id", s.id, "lesson_id", s.lesson.ID, "error", f.Err)
	}
	s.publishLocked()
}

// Submit answers the current question. The next question is shown after the reveal delay.
func (s *Session) Submit(option int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionClosed
	}
	s.lastActive = time.Now()

	if _, err := s.machine.Submit(option); err != nil {
		return s.viewLocked(), err
	}
	s.stopReveal = s.afterFunc(s.revealDelay, s.advance)
	s.publishLocked()
	return s.viewLocked(), nil
}

func (s *Session) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopReveal = nil

	state, err := s.machine.Advance()
	if err != nil {
		return
	}
	if f, ok := state.(Finished); ok {
		go s.fetchSummary(f.Score, f.Total, s.machine.Content())
	}
	s.publishLocked()
}

func (s *Session) fetchSummary(score, total int, content *domain.LessonContent) {
	text := s.src.PerformanceSummary(s.ctx, score, total, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.machine.SetSummary(text); err != nil {
		return
	}
	s.publishLocked()
}

// Finish returns the completion event once every question has been answered.
func (s *Session) Finish() (CompletionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return CompletionEvent{}, ErrSessionClosed
	}
	s.lastActive = time.Now()
	return s.machine.Finish()
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

// Subscribe returns a channel that receives the latest view after every
// transition. The current view is delivered immediately. The channel is
// closed when the session closes or cancel is called.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- s.viewLocked()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close tears the session down. Pending provider results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	if s.stopReveal != nil {
		s.stopReveal()
		s.stopReveal = nil
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	slog.Info("Quiz session closed", "session_id", s.id, "lesson_id", s.lesson.ID)
}

func (s *Session) viewLocked() View {
	return buildView(s.id, s.lesson, s.machine)
}

// publishLocked delivers the latest view, replacing any view the subscriber has not read yet.
func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	v := s.viewLocked()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
