package provider

import (
	"errors"
	"fmt"

	"github.com/ashureev/devenglish/internal/domain"
)

// ErrMissingField is returned when the lesson payload omits a required key.
var ErrMissingField = errors.New("required field missing")

// lessonPayload mirrors lessonSchema. Pointers distinguish an absent key
// from a zero value, so a question without correctAnswer is not read as 0.
type lessonPayload struct {
	Grammar        *string           `json:"grammar"`
	Vocabulary     []string          `json:"vocabulary"`
	ReadingPassage *string           `json:"readingPassage"`
	CodeSnippet    *snippetPayload   `json:"codeSnippet"`
	Quiz           []questionPayload `json:"quiz"`
}

type snippetPayload struct {
	Language    *string `json:"language"`
	Code        *string `json:"code"`
	Explanation *string `json:"explanation"`
}

type questionPayload struct {
	Question      *string  `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
	Explanation   *string  `json:"explanation"`
}

func missing(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// toDomain checks that every required key is present. Value checks are left
// to domain.LessonContent.Validate.
func (p lessonPayload) toDomain() (domain.LessonContent, error) {
	switch {
	case p.Grammar == nil:
		return domain.LessonContent{}, missing("grammar")
	case p.Vocabulary == nil:
		return domain.LessonContent{}, missing("vocabulary")
	case p.ReadingPassage == nil:
		return domain.LessonContent{}, missing("readingPassage")
	case p.CodeSnippet == nil:
		return domain.LessonContent{}, missing("codeSnippet")
	case p.CodeSnippet.Language == nil:
		return domain.LessonContent{}, missing("codeSnippet.language")
	case p.CodeSnippet.Code == nil:
		return domain.LessonContent{}, missing("codeSnippet.code")
	case p.CodeSnippet.Explanation == nil:
		return domain.LessonContent{}, missing("codeSnippet.explanation")
	case p.Quiz == nil:
		return domain.LessonContent{}, missing("quiz")
	}

	quiz := make([]domain.QuizQuestion, 0, len(p.Quiz))
	for i, q := range p.Quiz {
		switch {
		case q.Question == nil:
			return domain.LessonContent{}, missing(fmt.Sprintf("quiz[%d].question", i))
		case q.Options == nil:
			return domain.LessonContent{}, missing(fmt.Sprintf("quiz[%d].options", i))
		case q.CorrectAnswer == nil:
			return domain.LessonContent{}, missing(fmt.Sprintf("quiz[%d].correctAnswer", i))
		case q.Explanation == nil:
			return domain.LessonContent{}, missing(fmt.Sprintf("quiz[%d].explanation", i))
		}
		quiz = append(quiz, domain.QuizQuestion{
			Question:      *q.Question,
			Options:       q.Options,
			CorrectAnswer: *q.CorrectAnswer,
			Explanation:   *q.Explanation,
		})
	}

	return domain.LessonContent{
		Grammar:        *p.Grammar,
		Vocabulary:     p.Vocabulary,
		ReadingPassage: *p.ReadingPassage,
		CodeSnippet: domain.CodeSnippet{
			Language:    domain.SnippetLanguage(*p.CodeSnippet.Language),
			Code:        *p.CodeSnippet.Code,
			Explanation: *p.CodeSnippet.Explanation,
		},
		Quiz: quiz,
	}, nil
}
