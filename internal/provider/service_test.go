package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/devenglish/internal/domain"
	"github.com/ashureev/devenglish/internal/journal"
)

type fakeGenerator struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.text, f.err
}

func (f *fakeGenerator) last(t *testing.T) GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no request recorded")
	}
	return f.requests[len(f.requests)-1]
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (m *memoryJournal) Record(_ context.Context, e *journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func sampleContent() domain.LessonContent {
	return domain.LessonContent{
		Grammar:        "Present simple for habits",
		Vocabulary:     []string{"deploy", "commit", "merge", "branch"},
		ReadingPassage: "Every morning I pull the latest changes.",
		CodeSnippet:    domain.CodeSnippet{Language: "Python", Code: "print('hi')", Explanation: "prints"},
		Quiz: []domain.QuizQuestion{
			{Question: "Pick one", Options: []string{"a", "b"}, CorrectAnswer: 1, Explanation: "b"},
		},
	}
}

func TestLessonContentSuccess(t *testing.T) {
	t.Parallel()

	raw, _ := json.Marshal(sampleContent())
	gen := &fakeGenerator{text: string(raw)}
	rec := &memoryJournal{}
	svc := NewService(gen, Options{LessonModel: "lesson-model", Journal: rec})

	content, err := svc.LessonContent(context.Background(), 3, "Git Workflow")
	if err != nil {
		t.Fatalf("LessonContent: %v", err)
	}
	if content.CodeSnippet.Language != domain.SnippetPython {
		t.Fatalf("expected normalized language, got %q", content.CodeSnippet.Language)
	}

	req := gen.last(t)
	if req.Model != "lesson-model" {
		t.Fatalf("unexpected model %q", req.Model)
	}
	if req.ResponseMIMEType != "application/json" || req.ResponseSchema == nil {
		t.Fatalf("expected structured output request, got %+v", req)
	}
	prompt := req.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Day 3 of a 30-day plan") || !strings.Contains(prompt, "Git Workflow") {
		t.Fatalf("prompt missing day or topic: %q", prompt)
	}
	if len(rec.entries) != 1 || rec.entries[0].Status != journal.StatusOK {
		t.Fatalf("expected one ok journal entry, got %+v", rec.entries)
	}
}

func TestLessonContentFailureStages(t *testing.T) {
	t.Parallel()

	invalid := sampleContent()
	invalid.Quiz[0].CorrectAnswer = 7
	invalidRaw, _ := json.Marshal(invalid)

	tests := []struct {
		name  string
		gen   *fakeGenerator
		stage Stage
	}{
		{"request", &fakeGenerator{err: &HTTPError{StatusCode: 500, Body: "boom"}}, StageRequest},
		{"decode", &fakeGenerator{text: "Here is your lesson!"}, StageDecode},
		{"validate", &fakeGenerator{text: string(invalidRaw)}, StageValidate},
		{"missing fields", &fakeGenerator{text: `{"grammar":"x"}`}, StageValidate},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(tt.gen, Options{})
			content, err := svc.LessonContent(context.Background(), 1, "Intro")
			if content != nil {
				t.Fatalf("expected no content, got %+v", content)
			}
			var cge *ContentGenerationError
			if !errors.As(err, &cge) {
				t.Fatalf("expected ContentGenerationError, got %v", err)
			}
			if cge.Stage != tt.stage {
				t.Fatalf("expected stage %s, got %s", tt.stage, cge.Stage)
			}
			if !IsContentGenerationError(err) {
				t.Fatal("IsContentGenerationError returned false")
			}
		})
	}
}

// lessonJSONWithout returns sampleContent as JSON with one key removed.
// path is either a top-level key, "codeSnippet.<key>" or "quiz.<key>".
func lessonJSONWithout(t *testing.T, path string) string {
	t.Helper()
	raw, err := json.Marshal(sampleContent())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	parent, key, nested := strings.Cut(path, ".")
	switch {
	case !nested:
		delete(doc, parent)
	case parent == "codeSnippet":
		delete(doc["codeSnippet"].(map[string]interface{}), key)
	case parent == "quiz":
		delete(doc["quiz"].([]interface{})[0].(map[string]interface{}), key)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(out)
}

func TestLessonContentRejectsMissingKeys(t *testing.T) {
	t.Parallel()

	paths := []string{
		"grammar",
		"vocabulary",
		"readingPassage",
		"codeSnippet",
		"codeSnippet.language",
		"codeSnippet.code",
		"codeSnippet.explanation",
		"quiz",
		"quiz.question",
		"quiz.options",
		"quiz.correctAnswer",
		"quiz.explanation",
	}

	for _, path := range paths {
		path := path
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			svc := NewService(&fakeGenerator{text: lessonJSONWithout(t, path)}, Options{})
			content, err := svc.LessonContent(context.Background(), 1, "Intro")
			if content != nil {
				t.Fatalf("expected no content, got %+v", content)
			}
			var cge *ContentGenerationError
			if !errors.As(err, &cge) || cge.Stage != StageValidate {
				t.Fatalf("expected validate-stage ContentGenerationError, got %v", err)
			}
		})
	}
}

func TestLessonContentKeepsExplicitZeroAnswer(t *testing.T) {
	t.Parallel()

	c := sampleContent()
	c.Quiz[0].CorrectAnswer = 0
	raw, _ := json.Marshal(c)
	svc := NewService(&fakeGenerator{text: string(raw)}, Options{})

	content, err := svc.LessonContent(context.Background(), 1, "Intro")
	if err != nil {
		t.Fatalf("LessonContent: %v", err)
	}
	if content.Quiz[0].CorrectAnswer != 0 || content.Quiz[0].Explanation != "b" {
		t.Fatalf("unexpected question %+v", content.Quiz[0])
	}
	if content.CodeSnippet.Explanation != "prints" {
		t.Fatalf("unexpected snippet %+v", content.CodeSnippet)
	}
}

func TestChatReplyMapsRoles(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "Nice! Tell me more."}
	svc := NewService(gen, Options{ChatModel: "chat-model"})
	history := []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "Hi"},
		{Role: domain.RoleUser, Content: "I write python yesterday"},
	}

	reply := svc.ChatReply(context.Background(), history)
	if reply != "Nice! Tell me more." {
		t.Fatalf("unexpected reply %q", reply)
	}

	req := gen.last(t)
	if req.System != chatSystemInstruction {
		t.Fatalf("unexpected system instruction %q", req.System)
	}
	if len(req.Contents) != 2 || req.Contents[0].Role != "model" || req.Contents[1].Role != "user" {
		t.Fatalf("unexpected contents %+v", req.Contents)
	}
	if req.Contents[1].Parts[0].Text != "I write python yesterday" {
		t.Fatalf("unexpected user text %+v", req.Contents[1])
	}
}

func TestFallbacks(t *testing.T) {
	t.Parallel()

	failing := &fakeGenerator{err: errors.New("connection reset")}
	empty := &fakeGenerator{text: "   "}
	content := sampleContent()
	history := []domain.ChatMessage{{Role: domain.RoleUser, Content: "hello"}}

	for _, gen := range []*fakeGenerator{failing, empty} {
		rec := &memoryJournal{}
		svc := NewService(gen, Options{Journal: rec})

		if got := svc.ChatReply(context.Background(), history); got != FallbackChatReply {
			t.Fatalf("ChatReply = %q, want fallback", got)
		}
		if got := svc.PerformanceSummary(context.Background(), 2, 3, &content); got != FallbackSummary {
			t.Fatalf("PerformanceSummary = %q, want fallback", got)
		}
		if got := svc.ConversationFeedback(context.Background(), history); got != FallbackFeedback {
			t.Fatalf("ConversationFeedback = %q, want fallback", got)
		}
		for _, e := range rec.entries {
			if e.Status != journal.StatusFallback {
				t.Fatalf("expected fallback entries, got %+v", e)
			}
		}
	}
}

func TestPerformanceSummaryPrompt(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "Great job!"}
	svc := NewService(gen, Options{})
	content := sampleContent()

	if got := svc.PerformanceSummary(context.Background(), 2, 3, &content); got != "Great job!" {
		t.Fatalf("unexpected summary %q", got)
	}
	prompt := gen.last(t).Contents[0].Parts[0].Text
	for _, want := range []string{"2 out of 3", content.Grammar, "deploy, commit, merge", "100 words"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("summary prompt missing %q: %s", want, prompt)
		}
	}
	if strings.Contains(prompt, "branch") {
		t.Fatalf("expected at most three vocabulary words: %s", prompt)
	}
}

func TestConversationFeedbackRequest(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "1. Use past tense."}
	svc := NewService(gen, Options{})
	history := []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "Hi"},
		{Role: domain.RoleUser, Content: "I fix bug"},
		{Role: domain.RoleAssistant, Content: "Which bug?"},
	}

	if got := svc.ConversationFeedback(context.Background(), history); got != "1. Use past tense." {
		t.Fatalf("unexpected feedback %q", got)
	}
	req := gen.last(t)
	if req.System != coachSystemInstruction {
		t.Fatalf("unexpected system instruction %q", req.System)
	}
	if len(req.Contents) != 1 {
		t.Fatalf("expected one content turn, got %d", len(req.Contents))
	}
	parts := req.Contents[0].Parts
	if len(parts) != 4 || parts[0].Text != feedbackInstruction || parts[2].Text != "I fix bug" {
		t.Fatalf("unexpected parts %+v", parts)
	}
}
