// Package realtime serves the WebSocket chat channel.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/ashureev/devenglish/internal/chat"
	"github.com/ashureev/devenglish/internal/identity"
	"github.com/ashureev/devenglish/internal/sessions"
)

// ChatSocket handles WebSocket chat sessions.
type ChatSocket struct {
	chats          *sessions.Registry[*chat.Session]
	coach          chat.Coach
	allowedOrigins []string
	isDev          bool
}

// NewChatSocket creates a new WebSocket chat handler.
func NewChatSocket(chats *sessions.Registry[*chat.Session], coach chat.Coach, allowedOrigins []string, isDev bool) *ChatSocket {
	return &ChatSocket{
		chats:          chats,
		coach:          coach,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// clientMessage is sent by the browser.
type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// serverMessage is pushed to the browser.
type serverMessage struct {
	Type  string     `json:"type"`
	Chat  *chat.View `json:"chat,omitempty"`
	Error string     `json:"error,omitempty"`
}

// conn serializes writes to a websocket.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// ServeHTTP implements http.Handler for WebSocket upgrade. A session_id query
// parameter resumes an existing conversation; otherwise a new one is started.
func (h *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	learnerID := identity.LearnerIDFromContext(r.Context())
	slog.Info("Chat socket connection request", "learner_id", learnerID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	session, resumed := h.resolveSession(r, learnerID)
	if session == nil {
		http.Error(w, `{"error":"session_not_found"}`, http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "learner_id", learnerID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "learner_id", learnerID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws}
	stopWatch := session.Watch(func(v chat.View) {
		if err := c.writeJSON(ctx, serverMessage{Type: "state", Chat: &v}); err != nil {
			slog.Debug("Failed to push chat state", "error", err, "session_id", session.ID())
		}
	})
	defer stopWatch()

	view := session.View()
	if err := c.writeJSON(ctx, serverMessage{Type: "state", Chat: &view}); err != nil {
		slog.Debug("Failed to send initial chat state", "error", err)
		return
	}
	slog.Info("Chat socket attached", "session_id", session.ID(), "resumed", resumed)

	h.inputLoop(ctx, c, session)
	slog.Info("Chat socket ended", "session_id", session.ID())
}

func (h *ChatSocket) resolveSession(r *http.Request, learnerID string) (*chat.Session, bool) {
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		s, ok := h.chats.Get(sid)
		if !ok || s.Owner() != learnerID {
			return nil, false
		}
		return s, true
	}
	s := chat.NewSession(sessions.NewID(), learnerID, h.coach)
	h.chats.Register(s)
	return s, false
}

func (h *ChatSocket) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

// inputLoop dispatches client messages. Coach calls run in their own
// goroutines and outlive a dropped socket; the reply stays in the session.
func (h *ChatSocket) inputLoop(ctx context.Context, c *conn, session *chat.Session) {
	callCtx := context.WithoutCancel(ctx)
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("Chat socket closed by client", "session_id", session.ID())
			} else {
				slog.Warn("Chat socket read error", "error", err, "session_id", session.ID())
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(ctx, c, "invalid_message")
			continue
		}

		switch msg.Type {
		case "message":
			go func() {
				if _, err := session.Send(callCtx, msg.Text); err != nil {
					h.sendError(ctx, c, errorCode(err))
				}
			}()
		case "feedback":
			go func() {
				if _, err := session.RequestFeedback(callCtx); err != nil {
					h.sendError(ctx, c, errorCode(err))
				}
			}()
		case "dismiss":
			if _, err := session.DismissFeedback(); err != nil {
				h.sendError(ctx, c, errorCode(err))
			}
		case "ping":
			if err := c.writeJSON(ctx, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			h.sendError(ctx, c, "unknown_type")
		}

		if session.Closed() {
			return
		}
	}
}

func (h *ChatSocket) sendError(ctx context.Context, c *conn, code string) {
	if err := c.writeJSON(ctx, serverMessage{Type: "error", Error: code}); err != nil {
		slog.Debug("Failed to send chat error", "error", err, "code", code)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, chat.ErrBusy):
		return "busy"
	case errors.Is(err, chat.ErrTooFewMessages):
		return "too_few_messages"
	case errors.Is(err, chat.ErrSessionClosed):
		return "session_closed"
	default:
		return "internal_error"
	}
}
