package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/devenglish/internal/curriculum"
	"github.com/ashureev/devenglish/internal/domain"
	"github.com/ashureev/devenglish/internal/journal"
)

type progressResponse struct {
	Progress domain.UserProgress `json:"progress"`
	Stats    curriculum.Stats    `json:"stats"`
}

// ListLessons returns the learner's 30-day plan.
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"lessons": h.store(r).Lessons(),
	})
}

// GetLesson returns a single lesson.
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.store(r).Lesson(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, lesson)
}

// GetProgress returns progress and derived dashboard stats.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	JSON(w, http.StatusOK, progressResponse{Progress: store.Progress(), Stats: store.Stats()})
}

// CompleteLesson marks a lesson completed without going through a quiz.
func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	store := h.store(r)
	progress, err := store.CompleteLesson(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.recordCompletion(r.Context(), id, "")
	JSON(w, http.StatusOK, progressResponse{Progress: progress, Stats: store.Stats()})
}

func (h *Handler) recordCompletion(ctx context.Context, lessonID, sessionID string) {
	err := h.journal.Record(context.WithoutCancel(ctx), &journal.Entry{
		Kind:      journal.KindLessonCompleted,
		LessonID:  lessonID,
		SessionID: sessionID,
		Status:    journal.StatusOK,
	})
	if err != nil {
		slog.Warn("Failed to record lesson completion", "lesson_id", lessonID, "error", err)
	}
}
