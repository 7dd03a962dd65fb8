package quiz

import "github.com/ashureev/devenglish/internal/domain"

// View is the client-facing snapshot of a quiz session. The correct answer
// of the current question is only present once it has been revealed.
type View struct {
	SessionID string        `json:"session_id"`
	Lesson    domain.Lesson `json:"lesson"`
	Phase     Phase         `json:"phase"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Score     int           `json:"score"`

	Content  *ContentView  `json:"content,omitempty"`
	Question *QuestionView `json:"question,omitempty"`
	Reveal   *RevealView   `json:"reveal,omitempty"`

	Summary        string `json:"summary,omitempty"`
	SummaryPending bool   `json:"summary_pending"`
	Error          string `json:"error,omitempty"`
}

// ContentView is the study material shown above the quiz.
type ContentView struct {
	Grammar        string             `json:"grammar"`
	Vocabulary     []string           `json:"vocabulary"`
	ReadingPassage string             `json:"readingPassage"`
	CodeSnippet    domain.CodeSnippet `json:"codeSnippet"`
}

type QuestionView struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type RevealView struct {
	Chosen        int    `json:"chosen"`
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

func buildView(id string, lesson domain.Lesson, m *Machine) View {
	v := View{
		SessionID:      id,
		Lesson:         lesson,
		Phase:          m.State().Phase(),
		Score:          m.Score(),
		Summary:        m.Summary(),
		SummaryPending: m.SummaryPending(),
	}

	c := m.Content()
	if c != nil {
		v.Total = len(c.Quiz)
		v.Content = &ContentView{
			Grammar:        c.Grammar,
			Vocabulary:     append([]string(nil), c.Vocabulary...),
			ReadingPassage: c.ReadingPassage,
			CodeSnippet:    c.CodeSnippet,
		}
	}

	question := func(i int) *QuestionView {
		q := c.Quiz[i]
		return &QuestionView{Question: q.Question, Options: append([]string(nil), q.Options...)}
	}

	switch s := m.State().(type) {
	case Answering:
		v.Index = s.Index
		v.Question = question(s.Index)
	case Revealed:
		v.Index = s.Index
		v.Question = question(s.Index)
		v.Reveal = &RevealView{
			Chosen:        s.Chosen,
			Correct:       s.Correct,
			CorrectAnswer: s.CorrectAnswer,
			Explanation:   s.Explanation,
		}
	case Finished:
		v.Index = s.Total
		v.Score = s.Score
	case Failed:
		v.Error = s.Err.Error()
	}
	return v
}
