package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/devenglish/internal/curriculum"
	"github.com/ashureev/devenglish/internal/domain"
	"github.com/ashureev/devenglish/internal/identity"
	"github.com/ashureev/devenglish/internal/quiz"
	"github.com/ashureev/devenglish/internal/sessions"
)

const sseKeepaliveInterval = 15 * time.Second

type answerRequest struct {
	Option *int `json:"option"`
}

type finishResponse struct {
	Completion     quiz.CompletionEvent `json:"completion"`
	Progress       domain.UserProgress  `json:"progress"`
	Stats          curriculum.Stats     `json:"stats"`
	Summary        string               `json:"summary,omitempty"`
	SummaryPending bool                 `json:"summary_pending"`
}

// StartQuiz opens a lesson and starts fetching its content.
// Locked lessons are rejected before any fetch happens.
func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.store(r).Select(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}

	opts := h.quizOpts
	opts.Owner = identity.LearnerIDFromContext(r.Context())
	s := quiz.NewSession(sessions.NewID(), lesson, h.provider, opts)
	h.quizzes.Register(s)
	s.Start()

	slog.Info("Quiz session started", "session_id", s.ID(), "lesson_id", lesson.ID, "day", lesson.Day)
	JSON(w, http.StatusCreated, s.View())
}

// GetQuiz returns the current quiz view.
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedQuiz(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, s.View())
}

// AnswerQuiz submits an option for the current question.
func (h *Handler) AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedQuiz(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req answerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Option == nil {
		Error(w, http.StatusBadRequest, "option_required")
		return
	}

	view, err := s.Submit(*req.Option)
	if err != nil {
		writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// FinishQuiz completes the lesson once every question is answered.
func (h *Handler) FinishQuiz(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedQuiz(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	ev, err := s.Finish()
	if err != nil {
		writeErr(w, err)
		return
	}

	store := h.store(r)
	progress, err := store.CompleteLesson(ev.LessonID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.recordCompletion(r.Context(), ev.LessonID, s.ID())

	view := s.View()
	slog.Info("Lesson completed", "session_id", s.ID(), "lesson_id", ev.LessonID, "score", ev.Score, "total", ev.Total)
	JSON(w, http.StatusOK, finishResponse{
		Completion:     ev,
		Progress:       progress,
		Stats:          store.Stats(),
		Summary:        view.Summary,
		SummaryPending: view.SummaryPending,
	})
}

// DeleteQuiz tears the session down. Late provider results are discarded.
func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedQuiz(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.quizzes.Remove(s.ID())
	w.WriteHeader(http.StatusNoContent)
}

// QuizEvents streams quiz views as server-sent events.
func (h *Handler) QuizEvents(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedQuiz(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error": "streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	views, cancel := s.Subscribe()
	defer cancel()

	slog.Info("Quiz stream connected", "session_id", s.ID())
	defer slog.Info("Quiz stream closed", "session_id", s.ID())

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	var eventID int64
	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-views:
			if !ok {
				if err := writeSSE(w, "closed", `{"status":"closed"}`); err == nil {
					flusher.Flush()
				}
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				slog.Warn("failed to encode quiz view", "error", err, "session_id", s.ID())
				return
			}
			eventID++
			if err := writeSSEWithID(w, eventID, "state", string(data)); err != nil {
				slog.Warn("failed to write SSE event", "error", err, "session_id", s.ID())
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				slog.Warn("failed to write SSE keepalive ping", "error", err, "session_id", s.ID())
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEWithID(w io.Writer, id int64, event, data string) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
