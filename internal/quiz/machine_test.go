package quiz

import (
	"errors"
	"testing"

	"github.com/ashureev/devenglish/internal/domain"
)

func threeQuestionContent() *domain.LessonContent {
	return &domain.LessonContent{
		Grammar:        "Past simple",
		Vocabulary:     []string{"deploy", "rollback"},
		ReadingPassage: "Yesterday we deployed the service.",
		CodeSnippet:    domain.CodeSnippet{Language: domain.SnippetPython, Code: "deploy()", Explanation: "runs a deploy"},
		Quiz: []domain.QuizQuestion{
			{Question: "Q1", Options: []string{"a", "b", "c"}, CorrectAnswer: 0, Explanation: "e1"},
			{Question: "Q2", Options: []string{"a", "b", "c"}, CorrectAnswer: 2, Explanation: "e2"},
			{Question: "Q3", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1, Explanation: "e3"},
		},
	}
}

func loadedMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine("1")
	if err := m.Load(threeQuestionContent(), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestMachineScoresThreeQuestions(t *testing.T) {
	t.Parallel()
	m := loadedMachine(t)

	answers := []int{0, 1, 1}
	wantCorrect := []bool{true, false, true}
	for i, opt := range answers {
		rev, err := m.Submit(opt)
		if err != nil {
			t.Fatalf("Submit(%d): %v", opt, err)
		}
		if rev.Index != i || rev.Correct != wantCorrect[i] {
			t.Fatalf("question %d: unexpected reveal %+v", i, rev)
		}
		if _, err := m.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}

	f, ok := m.State().(Finished)
	if !ok {
		t.Fatalf("expected Finished, got %T", m.State())
	}
	if f.Score != 2 || f.Total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", f.Score, f.Total)
	}
	if !m.SummaryPending() {
		t.Fatal("expected summary to be pending after finishing")
	}

	ev, err := m.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if ev != (CompletionEvent{LessonID: "1", Score: 2, Total: 3}) {
		t.Fatalf("unexpected completion event %+v", ev)
	}
}

func TestMachineDoubleSubmitIgnored(t *testing.T) {
	t.Parallel()
	m := loadedMachine(t)

	if _, err := m.Submit(0); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := m.Submit(0); !errors.Is(err, ErrNotAnswering) {
		t.Fatalf("expected ErrNotAnswering, got %v", err)
	}
	if m.Score() != 1 {
		t.Fatalf("expected score 1, got %d", m.Score())
	}
}

func TestMachineOptionOutOfRange(t *testing.T) {
	t.Parallel()
	m := loadedMachine(t)

	for _, opt := range []int{-1, 3} {
		if _, err := m.Submit(opt); !errors.Is(err, ErrOptionOutOfRange) {
			t.Fatalf("Submit(%d): expected ErrOptionOutOfRange, got %v", opt, err)
		}
	}
	if a, ok := m.State().(Answering); !ok || a.Index != 0 {
		t.Fatalf("expected state unchanged, got %#v", m.State())
	}
}

func TestMachineLoadFailures(t *testing.T) {
	t.Parallel()

	invalid := threeQuestionContent()
	invalid.Quiz = nil

	tests := []struct {
		name    string
		content *domain.LessonContent
		err     error
	}{
		{"fetch error", nil, errors.New("upstream down")},
		{"nil content", nil, nil},
		{"invalid content", invalid, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMachine("1")
			if err := m.Load(tt.content, tt.err); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if _, ok := m.State().(Failed); !ok {
				t.Fatalf("expected Failed, got %T", m.State())
			}
			if _, err := m.Submit(0); !errors.Is(err, ErrNotAnswering) {
				t.Fatalf("expected ErrNotAnswering, got %v", err)
			}
			if _, err := m.Finish(); !errors.Is(err, ErrNotFinished) {
				t.Fatalf("expected ErrNotFinished, got %v", err)
			}
		})
	}
}

func TestMachineRejectsOutOfOrderCalls(t *testing.T) {
	t.Parallel()
	m := NewMachine("1")

	if _, err := m.Submit(0); !errors.Is(err, ErrNotAnswering) {
		t.Fatalf("Submit while loading: %v", err)
	}
	if _, err := m.Advance(); !errors.Is(err, ErrNotRevealed) {
		t.Fatalf("Advance while loading: %v", err)
	}
	if err := m.SetSummary("x"); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("SetSummary while loading: %v", err)
	}
	if err := m.Load(threeQuestionContent(), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.Load(threeQuestionContent(), nil); !errors.Is(err, ErrNotLoading) {
		t.Fatalf("second Load: expected ErrNotLoading, got %v", err)
	}
	if _, err := m.Finish(); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("Finish while answering: %v", err)
	}
}

func TestBuildViewHidesAnswerUntilRevealed(t *testing.T) {
	t.Parallel()
	m := loadedMachine(t)

	v := buildView("s", domain.Lesson{ID: "1"}, m)
	if v.Phase != PhaseAnswering || v.Question == nil || v.Reveal != nil {
		t.Fatalf("unexpected answering view %+v", v)
	}
	if v.Total != 3 || v.Content == nil || v.Content.Grammar != "Past simple" {
		t.Fatalf("expected content in view, got %+v", v)
	}

	if _, err := m.Submit(2); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	v = buildView("s", domain.Lesson{ID: "1"}, m)
	if v.Reveal == nil || v.Reveal.CorrectAnswer != 0 || v.Reveal.Correct {
		t.Fatalf("unexpected reveal %+v", v.Reveal)
	}
}
