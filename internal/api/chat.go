package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ashureev/devenglish/internal/chat"
	"github.com/ashureev/devenglish/internal/identity"
	"github.com/ashureev/devenglish/internal/sessions"
)

type messageRequest struct {
	Text string `json:"text"`
}

// StartChat opens a practice conversation seeded with the greeting.
func (h *Handler) StartChat(w http.ResponseWriter, r *http.Request) {
	s := chat.NewSession(sessions.NewID(), identity.LearnerIDFromContext(r.Context()), h.provider)
	h.chats.Register(s)
	slog.Info("Chat session started", "session_id", s.ID())
	JSON(w, http.StatusCreated, s.View())
}

// GetChat returns the conversation view.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedChat(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, s.View())
}

// SendMessage appends a user message and waits for the coach's reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedChat(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req messageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	// Only Session.Close cancels the coach call; a dropped request does not.
	view, err := s.Send(context.WithoutCancel(r.Context()), req.Text)
	if err != nil {
		writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// RequestFeedback asks the coach to evaluate the conversation.
func (h *Handler) RequestFeedback(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedChat(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	view, err := s.RequestFeedback(context.WithoutCancel(r.Context()))
	if err != nil {
		writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// DismissFeedback hides the feedback panel.
func (h *Handler) DismissFeedback(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedChat(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	view, err := s.DismissFeedback()
	if err != nil {
		writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// DeleteChat tears the conversation down.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedChat(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.chats.Remove(s.ID())
	w.WriteHeader(http.StatusNoContent)
}
