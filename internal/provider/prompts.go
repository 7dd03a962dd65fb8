package provider

import (
	"fmt"
	"strings"

	"github.com/ashureev/devenglish/internal/domain"
)

const (
	FallbackChatReply = "Sorry, I lost my connection. Could you repeat that?"
	FallbackSummary   = "Excellent effort today! You are making steady progress towards B1 proficiency."
	FallbackFeedback  = "Keep practicing!"
)

const chatSystemInstruction = "You are a helpful English coach. Speak at a B1 level (Intermediate). " +
	"Use simple but structured sentences. Correct the user's grammar gently if they make A2-level mistakes. " +
	"Keep the context technical (Python, HTML, Web Dev)."

const coachSystemInstruction = "You are a professional ESL coach for developers. " +
	"Help them transition from A2 to B1 English by focusing on technical communication and clear sentence structures."

const feedbackInstruction = "Evaluate the user's English in this conversation. " +
	"Provide 3 specific tips for B1 improvement. Keep it encouraging."

func lessonPrompt(day int, topic string) string {
	return fmt.Sprintf(`Generate an English lesson for a software developer aiming to move from A2 to B1 level.
This is Day %d of a 30-day plan. The topic is: %s.
The lesson must include:
1. A grammar explanation suitable for B1 (Intermediate).
2. 5-7 technical vocabulary words.
3. A short reading passage related to programming (Python or HTML context).
4. A code snippet (Python or HTML) that uses the grammar/vocabulary in comments or logic.
5. 3 multiple-choice quiz questions.`, day, topic)
}

func summaryPrompt(score, total int, content *domain.LessonContent) string {
	vocab := content.Vocabulary
	if len(vocab) > 3 {
		vocab = vocab[:3]
	}
	return fmt.Sprintf(`A developer learning English just finished a lesson quiz with a score of %d out of %d.
The lesson grammar was: %s
The lesson vocabulary included: %s.
Write a brief, encouraging B1 level performance summary for them, using some of the vocabulary.
Keep it under 100 words.`, score, total, content.Grammar, strings.Join(vocab, ", "))
}

// lessonSchema is the structured output schema for lesson content.
var lessonSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"grammar":        map[string]any{"type": "STRING"},
		"vocabulary":     map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"readingPassage": map[string]any{"type": "STRING"},
		"codeSnippet": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"language":    map[string]any{"type": "STRING"},
				"code":        map[string]any{"type": "STRING"},
				"explanation": map[string]any{"type": "STRING"},
			},
			"required": []string{"language", "code", "explanation"},
		},
		"quiz": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"question":      map[string]any{"type": "STRING"},
					"options":       map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
					"correctAnswer": map[string]any{"type": "INTEGER"},
					"explanation":   map[string]any{"type": "STRING"},
				},
				"required": []string{"question", "options", "correctAnswer", "explanation"},
			},
		},
	},
	"required": []string{"grammar", "vocabulary", "readingPassage", "codeSnippet", "quiz"},
}
