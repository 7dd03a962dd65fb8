package domain

import (
	"errors"
	"testing"
)

func validContent() LessonContent {
	return LessonContent{
		Grammar:        "Use present simple for facts.",
		Vocabulary:     []string{"deploy", "runtime"},
		ReadingPassage: "The server starts every morning.",
		CodeSnippet:    CodeSnippet{Language: "Python", Code: "print('hi')", Explanation: "prints"},
		Quiz: []QuizQuestion{
			{Question: "Pick one", Options: []string{"a", "b"}, CorrectAnswer: 1, Explanation: "b"},
		},
	}
}

func TestLessonContentValidateNormalizesLanguage(t *testing.T) {
	t.Parallel()

	c := validContent()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c.CodeSnippet.Language != SnippetPython {
		t.Fatalf("expected normalized language python, got %q", c.CodeSnippet.Language)
	}
}

func TestLessonContentValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *LessonContent)
		want   error
	}{
		{"empty grammar", func(c *LessonContent) { c.Grammar = " " }, ErrEmptyField},
		{"no vocabulary", func(c *LessonContent) { c.Vocabulary = nil }, ErrEmptyField},
		{"no quiz", func(c *LessonContent) { c.Quiz = nil }, ErrEmptyField},
		{"unknown language", func(c *LessonContent) { c.CodeSnippet.Language = "cobol" }, ErrUnknownLanguage},
		{"one option", func(c *LessonContent) { c.Quiz[0].Options = []string{"a"}; c.Quiz[0].CorrectAnswer = 0 }, ErrTooFewOptions},
		{"answer out of range", func(c *LessonContent) { c.Quiz[0].CorrectAnswer = 2 }, ErrAnswerOutOfRange},
		{"negative answer", func(c *LessonContent) { c.Quiz[0].CorrectAnswer = -1 }, ErrAnswerOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContent()
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUserProgressCloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := UserProgress{CurrentDay: 2, CompletedLessons: []string{"1"}}
	c := p.Clone()
	c.CompletedLessons[0] = "9"
	if p.CompletedLessons[0] != "1" {
		t.Fatal("clone shares completed slice with original")
	}
	if !p.HasCompleted("1") || p.HasCompleted("2") {
		t.Fatal("HasCompleted mismatch")
	}
}
