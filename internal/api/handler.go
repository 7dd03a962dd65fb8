// Package api provides HTTP handlers for the DevEnglish API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/devenglish/internal/chat"
	"github.com/ashureev/devenglish/internal/curriculum"
	"github.com/ashureev/devenglish/internal/identity"
	"github.com/ashureev/devenglish/internal/journal"
	"github.com/ashureev/devenglish/internal/quiz"
	"github.com/ashureev/devenglish/internal/sessions"
)

const defaultMaxBodySize = 1 << 20

// Provider is everything the handlers need from the content provider.
type Provider interface {
	quiz.ContentSource
	chat.Coach
}

// Deps are the handler dependencies.
type Deps struct {
	Curricula   *curriculum.Directory
	Provider    Provider
	Quizzes     *sessions.Registry[*quiz.Session]
	Chats       *sessions.Registry[*chat.Session]
	Journal     journal.Repository
	QuizOptions quiz.Options
	MaxBodySize int64
}

// Handler serves the lesson, quiz, chat and activity endpoints.
type Handler struct {
	curricula   *curriculum.Directory
	provider    Provider
	quizzes     *sessions.Registry[*quiz.Session]
	chats       *sessions.Registry[*chat.Session]
	journal     journal.Repository
	quizOpts    quiz.Options
	maxBodySize int64
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	if d.MaxBodySize <= 0 {
		d.MaxBodySize = defaultMaxBodySize
	}
	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	return &Handler{
		curricula:   d.Curricula,
		provider:    d.Provider,
		quizzes:     d.Quizzes,
		chats:       d.Chats,
		journal:     d.Journal,
		quizOpts:    d.QuizOptions,
		maxBodySize: d.MaxBodySize,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/activity", h.Activity)

		r.Get("/lessons", h.ListLessons)
		r.Get("/lessons/{id}", h.GetLesson)
		r.Post("/lessons/{id}/complete", h.CompleteLesson)
		r.Post("/lessons/{id}/quiz", h.StartQuiz)
		r.Get("/progress", h.GetProgress)

		r.Route("/quiz/{sid}", func(r chi.Router) {
			r.Get("/", h.GetQuiz)
			r.Delete("/", h.DeleteQuiz)
			r.Post("/answer", h.AnswerQuiz)
			r.Post("/finish", h.FinishQuiz)
			r.Get("/events", h.QuizEvents)
		})

		r.Post("/chat", h.StartChat)
		r.Route("/chat/{sid}", func(r chi.Router) {
			r.Get("/", h.GetChat)
			r.Delete("/", h.DeleteChat)
			r.Post("/messages", h.SendMessage)
			r.Post("/feedback", h.RequestFeedback)
			r.Delete("/feedback", h.DismissFeedback)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

var errSessionNotFound = errors.New("session not found")

// writeErr maps domain errors to status codes and error codes.
func writeErr(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		Error(w, http.StatusRequestEntityTooLarge, "request_too_large")
	case errors.Is(err, curriculum.ErrLessonNotFound):
		Error(w, http.StatusNotFound, "lesson_not_found")
	case errors.Is(err, curriculum.ErrLessonLocked):
		Error(w, http.StatusForbidden, "lesson_locked")
	case errors.Is(err, errSessionNotFound),
		errors.Is(err, quiz.ErrSessionClosed),
		errors.Is(err, chat.ErrSessionClosed):
		Error(w, http.StatusNotFound, "session_not_found")
	case errors.Is(err, quiz.ErrOptionOutOfRange):
		Error(w, http.StatusBadRequest, "option_out_of_range")
	case errors.Is(err, quiz.ErrNotAnswering):
		Error(w, http.StatusConflict, "not_answering")
	case errors.Is(err, quiz.ErrNotFinished):
		Error(w, http.StatusConflict, "not_finished")
	case errors.Is(err, chat.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "empty_message")
	case errors.Is(err, chat.ErrBusy):
		Error(w, http.StatusConflict, "busy")
	case errors.Is(err, chat.ErrTooFewMessages):
		Error(w, http.StatusConflict, "too_few_messages")
	default:
		slog.Error("Unhandled API error", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error")
	}
}

// decodeJSON reads a size-limited JSON body into v.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErr(w, err)
			return false
		}
		Error(w, http.StatusBadRequest, "invalid_request_body")
		return false
	}
	return true
}

func (h *Handler) store(r *http.Request) *curriculum.Store {
	return h.curricula.For(identity.LearnerIDFromContext(r.Context()))
}

// ownedQuiz returns the quiz session if it exists and belongs to the caller.
func (h *Handler) ownedQuiz(r *http.Request) (*quiz.Session, error) {
	s, ok := h.quizzes.Get(chi.URLParam(r, "sid"))
	if !ok || s.Owner() != identity.LearnerIDFromContext(r.Context()) {
		return nil, errSessionNotFound
	}
	return s, nil
}

// ownedChat returns the chat session if it exists and belongs to the caller.
func (h *Handler) ownedChat(r *http.Request) (*chat.Session, error) {
	s, ok := h.chats.Get(chi.URLParam(r, "sid"))
	if !ok || s.Owner() != identity.LearnerIDFromContext(r.Context()) {
		return nil, errSessionNotFound
	}
	return s, nil
}
