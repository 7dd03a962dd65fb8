// Package journal records provider calls and lesson completions in an
// append-only activity log. It is read for observability only.
package journal

import (
	"context"
	"encoding/json"
	"time"
)

// Kind names the activity an entry describes.
type Kind string

const (
	KindLessonContent        Kind = "lesson_content"
	KindChatReply            Kind = "chat_reply"
	KindPerformanceSummary   Kind = "performance_summary"
	KindConversationFeedback Kind = "conversation_feedback"
	KindLessonCompleted      Kind = "lesson_completed"
)

// Status is the outcome of the recorded activity.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFailed   Status = "failed"
	StatusFallback Status = "fallback"
)

// Entry is one journal row.
type Entry struct {
	ID        int64         `json:"id"`
	Kind      Kind          `json:"kind"`
	LessonID  string        `json:"lesson_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Status    Status        `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// MarshalJSON reports Duration as whole milliseconds in duration_ms.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain: plain(e), DurationMS: e.Duration.Milliseconds()})
}

// Recorder appends entries to the journal.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// Repository is the full journal interface.
type Repository interface {
	Recorder

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Prune removes entries older than the retention window.
	Prune(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Nop is a Repository that drops every entry. Used when the journal is disabled.
type Nop struct{}

func (Nop) Record(context.Context, *Entry) error                { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error)        { return []Entry{}, nil }
func (Nop) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }
func (Nop) Ping(context.Context) error                          { return nil }
func (Nop) Close() error                                        { return nil }
