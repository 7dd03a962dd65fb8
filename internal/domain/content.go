package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SnippetLanguage is the language of a lesson code snippet.
type SnippetLanguage string

const (
	SnippetPython SnippetLanguage = "python"
	SnippetHTML   SnippetLanguage = "html"
)

var (
	ErrEmptyField       = errors.New("required field is empty")
	ErrTooFewOptions    = errors.New("question needs at least two options")
	ErrAnswerOutOfRange = errors.New("correct answer index out of range")
	ErrUnknownLanguage  = errors.New("unknown snippet language")
)

// CodeSnippet is a short program illustrating the lesson's grammar or vocabulary.
type CodeSnippet struct {
	Language    SnippetLanguage `json:"language"`
	Code        string          `json:"code"`
	Explanation string          `json:"explanation"`
}

// QuizQuestion is a single multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Validate checks that the question can be answered.
func (q QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question: %w", ErrEmptyField)
	}
	if len(q.Options) < 2 {
		return ErrTooFewOptions
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return fmt.Errorf("%w: %d of %d", ErrAnswerOutOfRange, q.CorrectAnswer, len(q.Options))
	}
	return nil
}

// IsCorrect reports whether option is the right answer.
func (q QuizQuestion) IsCorrect(option int) bool {
	return option == q.CorrectAnswer
}

// LessonContent is the generated body of a lesson. It is never cached.
type LessonContent struct {
	Grammar        string         `json:"grammar"`
	Vocabulary     []string       `json:"vocabulary"`
	ReadingPassage string         `json:"readingPassage"`
	CodeSnippet    CodeSnippet    `json:"codeSnippet"`
	Quiz           []QuizQuestion `json:"quiz"`
}

// Validate checks required fields and normalizes the snippet language.
func (c *LessonContent) Validate() error {
	switch {
	case strings.TrimSpace(c.Grammar) == "":
		return fmt.Errorf("grammar: %w", ErrEmptyField)
	case len(c.Vocabulary) == 0:
		return fmt.Errorf("vocabulary: %w", ErrEmptyField)
	case strings.TrimSpace(c.ReadingPassage) == "":
		return fmt.Errorf("readingPassage: %w", ErrEmptyField)
	case strings.TrimSpace(c.CodeSnippet.Code) == "":
		return fmt.Errorf("codeSnippet.code: %w", ErrEmptyField)
	case len(c.Quiz) == 0:
		return fmt.Errorf("quiz: %w", ErrEmptyField)
	}

	lang := SnippetLanguage(strings.ToLower(strings.TrimSpace(string(c.CodeSnippet.Language))))
	if lang != SnippetPython && lang != SnippetHTML {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, c.CodeSnippet.Language)
	}
	c.CodeSnippet.Language = lang

	for i, q := range c.Quiz {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("quiz[%d]: %w", i, err)
		}
	}
	return nil
}
