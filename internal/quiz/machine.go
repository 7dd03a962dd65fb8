// Package quiz drives a single lesson attempt: content fetch, answering,
// reveal, scoring and the closing performance summary.
package quiz

import (
	"errors"
	"fmt"

	"github.com/ashureev/devenglish/internal/domain"
)

var (
	ErrNotLoading       = errors.New("quiz content already loaded")
	ErrNotAnswering     = errors.New("quiz is not accepting answers")
	ErrOptionOutOfRange = errors.New("option out of range")
	ErrNotRevealed      = errors.New("no answer revealed")
	ErrNotFinished      = errors.New("quiz not finished")
)

// Phase names a machine state.
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseAnswering Phase = "answering"
	PhaseRevealed  Phase = "revealed"
	PhaseFinished  Phase = "finished"
	PhaseFailed    Phase = "failed"
)

// State is one of Loading, Answering, Revealed, Finished or Failed.
type State interface {
	Phase() Phase
}

type Loading struct{}

type Answering struct {
	Index int
}

type Revealed struct {
	Index         int
	Chosen        int
	Correct       bool
	CorrectAnswer int
	Explanation   string
}

type Finished struct {
	Score int
	Total int
}

type Failed struct {
	Err error
}

func (Loading) Phase() Phase   { return PhaseLoading }
func (Answering) Phase() Phase { return PhaseAnswering }
func (Revealed) Phase() Phase  { return PhaseRevealed }
func (Finished) Phase() Phase  { return PhaseFinished }
func (Failed) Phase() Phase    { return PhaseFailed }

// CompletionEvent is emitted when the user finishes a lesson.
type CompletionEvent struct {
	LessonID string `json:"lesson_id"`
	Score    int    `json:"score"`
	Total    int    `json:"total"`
}

// Machine is the quiz state machine. It performs no I/O and is not safe
// for concurrent use.
type Machine struct {
	lessonID string
	state    State
	content  *domain.LessonContent
	score    int

	summary        string
	summaryPending bool
}

// NewMachine returns a machine in the Loading state.
func NewMachine(lessonID string) *Machine {
	return &Machine{lessonID: lessonID, state: Loading{}}
}

func (m *Machine) State() State                   { return m.state }
func (m *Machine) Content() *domain.LessonContent { return m.content }
func (m *Machine) Score() int                     { return m.score }
func (m *Machine) Summary() string                { return m.summary }
func (m *Machine) SummaryPending() bool           { return m.summaryPending }

// Load applies the result of the content fetch.
func (m *Machine) Load(content *domain.LessonContent, err error) error {
	if _, ok := m.state.(Loading); !ok {
		return ErrNotLoading
	}
	if err == nil && content == nil {
		err = errors.New("no lesson content")
	}
	if err == nil {
		err = content.Validate()
	}
	if err != nil {
		m.state = Failed{Err: err}
		return nil
	}

	m.content = content
	m.score = 0
	m.state = Answering{Index: 0}
	return nil
}

// Submit answers the current question and reveals the result.
func (m *Machine) Submit(option int) (Revealed, error) {
	cur, ok := m.state.(Answering)
	if !ok {
		return Revealed{}, ErrNotAnswering
	}
	q := m.content.Quiz[cur.Index]
	if option < 0 || option >= len(q.Options) {
		return Revealed{}, fmt.Errorf("%w: %d of %d", ErrOptionOutOfRange, option, len(q.Options))
	}

	correct := q.IsCorrect(option)
	if correct {
		m.score++
	}
	rev := Revealed{
		Index:         cur.Index,
		Chosen:        option,
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
	m.state = rev
	return rev, nil
}

// Advance moves past a revealed answer to the next question or to Finished.
func (m *Machine) Advance() (State, error) {
	rev, ok := m.state.(Revealed)
	if !ok {
		return m.state, ErrNotRevealed
	}

	next := rev.Index + 1
	if next < len(m.content.Quiz) {
		m.state = Answering{Index: next}
	} else {
		m.state = Finished{Score: m.score, Total: len(m.content.Quiz)}
		m.summaryPending = true
	}
	return m.state, nil
}

// SetSummary stores the performance summary text.
func (m *Machine) SetSummary(text string) error {
	if _, ok := m.state.(Finished); !ok {
		return ErrNotFinished
	}
	m.summary = text
	m.summaryPending = false
	return nil
}

// Finish returns the completion event. It does not wait for the summary.
func (m *Machine) Finish() (CompletionEvent, error) {
	f, ok := m.state.(Finished)
	if !ok {
		return CompletionEvent{}, ErrNotFinished
	}
	return CompletionEvent{LessonID: m.lessonID, Score: f.Score, Total: f.Total}, nil
}
