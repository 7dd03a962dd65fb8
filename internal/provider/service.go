package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/devenglish/internal/domain"
	"github.com/ashureev/devenglish/internal/journal"
)

// DefaultModel is used when no model is configured for a purpose.
const DefaultModel = "gemini-3-flash-preview"

// Options configures a Service.
type Options struct {
	LessonModel string
	ChatModel   string

	// Journal records every call. Nil disables recording.
	Journal journal.Recorder
}

// Service exposes the four content operations on top of a Generator.
type Service struct {
	gen         Generator
	lessonModel string
	chatModel   string
	journal     journal.Recorder
}

// NewService creates a provider service.
func NewService(gen Generator, opts Options) *Service {
	if opts.LessonModel == "" {
		opts.LessonModel = DefaultModel
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultModel
	}
	return &Service{
		gen:         gen,
		lessonModel: opts.LessonModel,
		chatModel:   opts.ChatModel,
		journal:     opts.Journal,
	}
}

// LessonContent generates the body of the lesson for day and topic.
// Every failure is returned as *ContentGenerationError.
func (s *Service) LessonContent(ctx context.Context, day int, topic string) (*domain.LessonContent, error) {
	start := time.Now()
	content, err := s.lessonContent(ctx, day, topic)

	detail := fmt.Sprintf("day %d", day)
	status := journal.StatusOK
	if err != nil {
		status = journal.StatusFailed
		detail = err.Error()
		slog.Warn("Lesson content generation failed", "day", day, "topic", topic, "error", err)
	}
	s.record(ctx, journal.KindLessonContent, status, detail, start)
	return content, err
}

func (s *Service) lessonContent(ctx context.Context, day int, topic string) (*domain.LessonContent, error) {
	text, err := s.gen.Generate(ctx, GenerateRequest{
		Model:            s.lessonModel,
		Contents:         []Content{userContent(lessonPrompt(day, topic))},
		ResponseMIMEType: "application/json",
		ResponseSchema:   lessonSchema,
	})
	if err != nil {
		return nil, &ContentGenerationError{Stage: StageRequest, Err: err}
	}

	var payload lessonPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &payload); err != nil {
		return nil, &ContentGenerationError{Stage: StageDecode, Err: err}
	}
	content, err := payload.toDomain()
	if err != nil {
		return nil, &ContentGenerationError{Stage: StageValidate, Err: err}
	}
	if err := content.Validate(); err != nil {
		return nil, &ContentGenerationError{Stage: StageValidate, Err: err}
	}
	return &content, nil
}

// ChatReply answers the last user turn of history. It never fails: errors
// are logged and replaced with FallbackChatReply.
func (s *Service) ChatReply(ctx context.Context, history []domain.ChatMessage) string {
	start := time.Now()
	text, err := s.gen.Generate(ctx, GenerateRequest{
		Model:    s.chatModel,
		System:   chatSystemInstruction,
		Contents: toContents(history),
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		replyErr := &ChatReplyError{Err: err}
		slog.Warn("Chat reply failed, using fallback", "messages", len(history), "error", replyErr)
		s.record(ctx, journal.KindChatReply, journal.StatusFallback, replyErr.Error(), start)
		return FallbackChatReply
	}

	s.record(ctx, journal.KindChatReply, journal.StatusOK, "", start)
	return text
}

// PerformanceSummary writes a short coaching summary for a finished quiz.
// Errors are replaced with FallbackSummary.
func (s *Service) PerformanceSummary(ctx context.Context, score, total int, content *domain.LessonContent) string {
	start := time.Now()
	if content == nil {
		s.record(ctx, journal.KindPerformanceSummary, journal.StatusFallback, "no lesson content", start)
		return FallbackSummary
	}

	text, err := s.gen.Generate(ctx, GenerateRequest{
		Model:    s.lessonModel,
		Contents: []Content{userContent(summaryPrompt(score, total, content))},
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		sumErr := &SummaryError{Kind: "performance summary", Err: err}
		slog.Warn("Performance summary failed, using fallback", "score", score, "total", total, "error", sumErr)
		s.record(ctx, journal.KindPerformanceSummary, journal.StatusFallback, sumErr.Error(), start)
		return FallbackSummary
	}

	s.record(ctx, journal.KindPerformanceSummary, journal.StatusOK, fmt.Sprintf("score %d/%d", score, total), start)
	return text
}

// ConversationFeedback evaluates the user's English in history.
// Errors and empty answers are replaced with FallbackFeedback.
func (s *Service) ConversationFeedback(ctx context.Context, history []domain.ChatMessage) string {
	start := time.Now()

	parts := make([]Part, 0, len(history)+1)
	parts = append(parts, Part{Text: feedbackInstruction})
	for _, m := range history {
		parts = append(parts, Part{Text: m.Content})
	}

	text, err := s.gen.Generate(ctx, GenerateRequest{
		Model:    s.chatModel,
		System:   coachSystemInstruction,
		Contents: []Content{{Role: "user", Parts: parts}},
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		sumErr := &SummaryError{Kind: "conversation feedback", Err: err}
		slog.Warn("Conversation feedback failed, using fallback", "messages", len(history), "error", sumErr)
		s.record(ctx, journal.KindConversationFeedback, journal.StatusFallback, sumErr.Error(), start)
		return FallbackFeedback
	}

	s.record(ctx, journal.KindConversationFeedback, journal.StatusOK, "", start)
	return text
}

func (s *Service) record(ctx context.Context, kind journal.Kind, status journal.Status, detail string, start time.Time) {
	if s.journal == nil {
		return
	}
	entry := &journal.Entry{
		Kind:     kind,
		Status:   status,
		Detail:   detail,
		Duration: time.Since(start),
	}
	// The session may already be gone; the entry is still worth keeping.
	if err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("Failed to record activity", "kind", kind, "error", err)
	}
}

func userContent(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// toContents maps chat history to provider turns. Assistant turns use the "model" role.
func toContents(history []domain.ChatMessage) []Content {
	out := make([]Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		out = append(out, Content{Role: role, Parts: []Part{{Text: m.Content}}})
	}
	return out
}

// IsContentGenerationError reports whether err came from lesson generation.
func IsContentGenerationError(err error) bool {
	var cge *ContentGenerationError
	return errors.As(err, &cge)
}
